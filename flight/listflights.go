package flight

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/nest/internal/serialize"
)

// ListFlights returns the service listing: one entry per tool and one for
// the companies table. The listing is serialized as Arrow IPC, compressed
// with ZStandard and carried in the ticket of a single FlightInfo.
//
// Criteria parameter is ignored.
func (s *Server) ListFlights(_ *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	s.logger.Debug("ListFlights called")

	data, err := serialize.SerializeListing(s.listing(), s.allocator)
	if err != nil {
		s.logger.Error("Failed to serialize listing", "error", err)
		return status.Errorf(codes.Internal, "failed to serialize listing: %v", err)
	}

	compressed, err := serialize.CompressListing(data)
	if err != nil {
		s.logger.Error("Failed to compress listing", "error", err)
		return status.Errorf(codes.Internal, "failed to compress listing: %v", err)
	}

	s.logger.Debug("Listing compressed",
		"uncompressed_bytes", len(data),
		"compressed_bytes", len(compressed),
	)

	info := &flight.FlightInfo{
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorCMD,
			Cmd:  []byte("ListFlights"),
		},
		Endpoint: []*flight.FlightEndpoint{
			{
				Ticket: &flight.Ticket{
					Ticket: compressed,
				},
			},
		},
		TotalRecords: -1,
		TotalBytes:   int64(len(compressed)),
	}

	if err := stream.Send(info); err != nil {
		s.logger.Error("Failed to send FlightInfo", "error", err)
		return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
	}
	return nil
}

func (s *Server) listing() []serialize.Entry {
	descriptors := s.tools.Descriptors()
	entries := make([]serialize.Entry, 0, len(descriptors)+1)
	for _, d := range descriptors {
		entries = append(entries, serialize.Entry{
			Kind:        serialize.KindTool,
			Name:        d.Name,
			Description: d.Description,
		})
	}

	model := s.tools.Model()
	entries = append(entries, serialize.Entry{
		Kind:        serialize.KindTable,
		Name:        model.Table(),
		Description: fmt.Sprintf("Company records (%s financial data)", model.Variant()),
	})
	return entries
}
