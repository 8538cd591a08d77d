package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DoGet streams the results of the search encoded in the ticket as Arrow
// record batches. The filter is compiled again, so a forged ticket is held
// to the same validation as a DoAction call.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := s.requestLogger(ctx)

	logger.Debug("DoGet called", "ticket_size", len(ticket.GetTicket()))

	ticketData, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		logger.Error("Failed to decode ticket", "error", err)
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}

	reader, err := s.tools.SearchRecords(ctx, s.allocator, ticketData.Filter)
	if err != nil {
		return toStatus(err)
	}
	defer reader.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(reader.Schema()), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	batchCount := 0
	totalRows := int64(0)

	for reader.Next() {
		select {
		case <-ctx.Done():
			logger.Debug("DoGet cancelled by client",
				"batches_sent", batchCount,
				"rows_sent", totalRows,
			)
			return status.Error(codes.Canceled, "request cancelled")
		default:
		}

		record := reader.RecordBatch()
		batchCount++
		totalRows += record.NumRows()

		if err := writer.Write(record); err != nil {
			logger.Error("Failed to write record batch", "batch", batchCount, "error", err)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", batchCount, err)
		}
	}
	if err := reader.Err(); err != nil {
		logger.Error("Failed to read search results", "error", err)
		return status.Errorf(codes.Internal, "failed to read results: %v", err)
	}

	logger.Debug("DoGet completed",
		"batches_sent", batchCount,
		"total_rows", totalRows,
	)
	return nil
}
