package flight

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/goccy/go-json"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/nest/search"
	"github.com/hugr-lab/nest/tools"
)

// GetFlightInfo validates a search and returns its result schema and a
// ticket for DoGet.
//
// Two descriptor forms are accepted:
//   - CMD: the command is a JSON filter request (empty means no filters)
//   - PATH: a single element naming the companies table, for an unfiltered search
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)
	logger := s.requestLogger(ctx)

	req, err := s.filterFromDescriptor(desc)
	if err != nil {
		logger.Debug("Invalid flight descriptor", "error", err)
		return nil, toStatus(err)
	}

	sc, err := s.tools.ResultSchema(req)
	if err != nil {
		return nil, toStatus(err)
	}

	ticket, err := EncodeTicket(req)
	if err != nil {
		logger.Error("Failed to encode ticket", "error", err)
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	endpoint := &flight.FlightEndpoint{
		Ticket: &flight.Ticket{
			Ticket: ticket,
		},
	}
	if s.address != "" {
		endpoint.Location = []*flight.Location{
			{
				Uri: "grpc://" + s.address,
			},
		}
	}

	logger.Debug("GetFlightInfo completed", "num_fields", sc.NumFields())

	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(sc, s.allocator),
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{endpoint},
		TotalRecords:     -1,
		TotalBytes:       -1,
	}, nil
}

// GetSchema returns the result schema of the search a descriptor names.
func (s *Server) GetSchema(ctx context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	sc, err := s.descriptorSchema(desc)
	if err != nil {
		return nil, toStatus(err)
	}
	return &flight.SchemaResult{Schema: flight.SerializeSchema(sc, s.allocator)}, nil
}

func (s *Server) descriptorSchema(desc *flight.FlightDescriptor) (*arrow.Schema, error) {
	req, err := s.filterFromDescriptor(desc)
	if err != nil {
		return nil, err
	}
	return s.tools.ResultSchema(req)
}

func (s *Server) filterFromDescriptor(desc *flight.FlightDescriptor) (*search.FilterRequest, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: missing flight descriptor", tools.ErrInvalidArguments)
	}

	switch desc.GetType() {
	case flight.DescriptorCMD:
		req := &search.FilterRequest{}
		cmd := bytes.TrimSpace(desc.GetCmd())
		if len(cmd) == 0 {
			return req, nil
		}
		dec := json.NewDecoder(bytes.NewReader(cmd))
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil {
			return nil, fmt.Errorf("%w: filter request: %w", tools.ErrInvalidArguments, err)
		}
		return req, nil

	case flight.DescriptorPATH:
		path := desc.GetPath()
		table := s.tools.Model().Table()
		if len(path) != 1 || path[0] != table {
			return nil, fmt.Errorf("%w: unknown flight path %v, expected [%s]", tools.ErrInvalidArguments, path, table)
		}
		return &search.FilterRequest{}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported descriptor type %v", tools.ErrInvalidArguments, desc.GetType())
	}
}
