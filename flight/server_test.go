package flight

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/nest/engine"
	"github.com/hugr-lab/nest/internal/msgpack"
	"github.com/hugr-lab/nest/internal/serialize"
	"github.com/hugr-lab/nest/schema"
	"github.com/hugr-lab/nest/tools"
)

// newTestTools returns a tool service over a small typed companies table.
func newTestTools(t *testing.T) *tools.Service {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.TempDirectory = t.TempDir()
	cfg.AccessMode = engine.AccessReadWrite
	model := schema.New(schema.Typed, "companies")

	ctx := context.Background()
	db, err := engine.Open(ctx, cfg)
	require.NoError(t, err)
	_, err = db.Exec(ctx, model.TableSQL())
	require.NoError(t, err)
	structure := schema.QuoteLiteral(schema.FinancialJSONStructure())
	_, err = db.Exec(ctx, `INSERT INTO companies (company_id, company_name, foundation_year, nace_categories, financial_data) VALUES
		('c1', 'Acme Software AS', 2001, ['62010'], json_transform('{"2021":{"revenue":1500000,"employees":8}}', `+structure+`)),
		('c2', 'Birk Fiske AS', 1950, ['03110'], json_transform('{"2017":{"revenue":90000,"employees":2}}', `+structure+`)),
		('c3', 'Acme Fiske AS', 1999, ['03110', '62010'], NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg.AccessMode = engine.AccessReadOnly
	return tools.NewService(tools.Config{Engine: cfg, Model: model})
}

// startServer serves svc on a random local port and returns a connected client.
func startServer(t *testing.T, svc *tools.Service) flight.Client {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	RegisterFlightServer(grpcServer, NewServer(svc, memory.DefaultAllocator, slog.Default(), lis.Addr().String()))
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	client, err := flight.NewClientWithMiddleware(lis.Addr().String(), nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func doAction(t *testing.T, client flight.Client, name string, body []byte) (string, error) {
	t.Helper()
	stream, err := client.DoAction(context.Background(), &flight.Action{Type: name, Body: body})
	require.NoError(t, err)

	var out string
	for {
		res, err := stream.Recv()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return "", err
		}
		out += string(res.GetBody())
	}
}

func TestListActions(t *testing.T) {
	client := startServer(t, newTestTools(t))

	stream, err := client.ListActions(context.Background(), &flight.Empty{})
	require.NoError(t, err)

	var names []string
	for {
		a, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, a.GetType())
		assert.NotEmpty(t, a.GetDescription())
	}
	assert.Equal(t, []string{tools.ToolSearch, tools.ToolRunRawQuery, tools.ToolCompany, tools.ToolCompanyAnnualReport}, names)
}

func TestDoActionSearch(t *testing.T) {
	client := startServer(t, newTestTools(t))

	body, err := msgpack.Encode(map[string]any{
		"name_substring":      "acme",
		"industry_categories": []string{"62010"},
	})
	require.NoError(t, err)

	out, err := doAction(t, client, tools.ToolSearch, body)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme Fiske AS", rows[0]["company_name"])
	assert.Equal(t, "Acme Software AS", rows[1]["company_name"])
}

func TestDoActionJSONBody(t *testing.T) {
	client := startServer(t, newTestTools(t))

	out, err := doAction(t, client, tools.ToolRunRawQuery, []byte(`{"sql":"SELECT count(*) AS n FROM companies"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"n":3}]`, out)
}

func TestDoActionErrors(t *testing.T) {
	client := startServer(t, newTestTools(t))

	tests := []struct {
		name string
		tool string
		body string
		code codes.Code
		kind string
	}{
		{"validation", tools.ToolSearch, `{"foundation_year_range":{"low":2020,"high":1990}}`, codes.InvalidArgument, tools.KindInvalidRequest},
		{"unknown tool", "drop_tables", `{}`, codes.Unimplemented, tools.KindUnknownTool},
		{"query failure", tools.ToolRunRawQuery, `{"sql":"SELECT * FROM missing_table"}`, codes.Internal, tools.KindQueryFailed},
		{"bad body", tools.ToolSearch, "\xc1", codes.InvalidArgument, tools.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := doAction(t, client, tt.tool, []byte(tt.body))
			require.Error(t, err)

			st := status.Convert(err)
			assert.Equal(t, tt.code, st.Code())

			var payload tools.ErrorPayload
			require.NoError(t, json.Unmarshal([]byte(st.Message()), &payload))
			assert.Equal(t, tt.kind, payload.Error)
		})
	}
}

func TestListFlights(t *testing.T) {
	client := startServer(t, newTestTools(t))

	stream, err := client.ListFlights(context.Background(), &flight.Criteria{})
	require.NoError(t, err)
	info, err := stream.Recv()
	require.NoError(t, err)

	entries, err := serialize.ReadListing(info.GetEndpoint()[0].GetTicket().GetTicket(), nil)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, serialize.KindTool, entries[0].Kind)
	assert.Equal(t, tools.ToolSearch, entries[0].Name)
	assert.Equal(t, serialize.Entry{
		Kind:        serialize.KindTable,
		Name:        "companies",
		Description: "Company records (typed financial data)",
	}, entries[4])
}

func TestGetFlightInfoAndDoGet(t *testing.T) {
	client := startServer(t, newTestTools(t))
	ctx := context.Background()

	info, err := client.GetFlightInfo(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorCMD,
		Cmd:  []byte(`{"industry_categories":["03110"]}`),
	})
	require.NoError(t, err)

	sc, err := flight.DeserializeSchema(info.GetSchema(), memory.DefaultAllocator)
	require.NoError(t, err)
	assert.Equal(t, schema.ColumnID, sc.Field(0).Name)

	endpoint := info.GetEndpoint()[0]
	require.Len(t, endpoint.GetLocation(), 1)
	assert.Contains(t, endpoint.GetLocation()[0].GetUri(), "grpc://127.0.0.1:")

	stream, err := client.DoGet(ctx, endpoint.GetTicket())
	require.NoError(t, err)
	reader, err := flight.NewRecordReader(stream)
	require.NoError(t, err)
	defer reader.Release()

	assert.True(t, reader.Schema().Equal(sc))

	var rows int64
	for reader.Next() {
		rows += reader.RecordBatch().NumRows()
	}
	require.NoError(t, reader.Err())
	assert.Equal(t, int64(2), rows)
}

func TestGetFlightInfoPath(t *testing.T) {
	client := startServer(t, newTestTools(t))
	ctx := context.Background()

	info, err := client.GetFlightInfo(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{"companies"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, info.GetEndpoint()[0].GetTicket().GetTicket())

	_, err = client.GetFlightInfo(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{"main", "users"},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetFlightInfo(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorCMD,
		Cmd:  []byte(`{"revenue_range":{"low":-1,"high":5}}`),
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDoGetInvalidTicket(t *testing.T) {
	client := startServer(t, newTestTools(t))

	stream, err := client.DoGet(context.Background(), &flight.Ticket{Ticket: []byte("nope")})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus(t *testing.T) {
	assert.NoError(t, toStatus(nil))
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Canceled)))

	orig := status.Error(codes.PermissionDenied, "no")
	assert.Equal(t, orig, toStatus(orig))
}
