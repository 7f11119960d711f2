// Package api implements the kvs.v1.Launcher gRPC service. Requests and
// responses travel as google.protobuf.Struct values holding the JSON form of
// the types in messages.go.
package api

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/catalog"
	"github.com/kvaesitso/kvs/internal/openinghours"
	"github.com/kvaesitso/kvs/internal/search"
	"github.com/kvaesitso/kvs/internal/status"
	"github.com/kvaesitso/kvs/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kvs.v1.Launcher"

// Method names.
const (
	MethodSearch            = "Search"
	MethodGetStatus         = "GetStatus"
	MethodParseOpeningHours = "ParseOpeningHours"
	MethodSetLabel          = "SetLabel"
	MethodListLabels        = "ListLabels"
	MethodImportCatalog     = "ImportCatalog"
)

// FullMethod returns the path used to invoke method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LauncherServer is the server API of kvs.v1.Launcher.
type LauncherServer interface {
	Search(req *structpb.Struct, stream grpc.ServerStream) error
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	ParseOpeningHours(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetLabel(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	ListLabels(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	ImportCatalog(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes kvs.v1.Launcher for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LauncherServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodGetStatus, Handler: getStatusHandler},
		{MethodName: MethodParseOpeningHours, Handler: parseOpeningHoursHandler},
		{MethodName: MethodSetLabel, Handler: setLabelHandler},
		{MethodName: MethodListLabels, Handler: listLabelsHandler},
		{MethodName: MethodImportCatalog, Handler: importCatalogHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: MethodSearch, Handler: searchHandler, ServerStreams: true},
	},
	Metadata: "kvs/v1/launcher.proto",
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LauncherServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(MethodGetStatus)}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(LauncherServer).GetStatus(ctx, req.(*emptypb.Empty))
	})
}

func parseOpeningHoursHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LauncherServer).ParseOpeningHours(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(MethodParseOpeningHours)}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(LauncherServer).ParseOpeningHours(ctx, req.(*structpb.Struct))
	})
}

func setLabelHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LauncherServer).SetLabel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(MethodSetLabel)}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(LauncherServer).SetLabel(ctx, req.(*structpb.Struct))
	})
}

func listLabelsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LauncherServer).ListLabels(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(MethodListLabels)}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(LauncherServer).ListLabels(ctx, req.(*emptypb.Empty))
	})
}

func importCatalogHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LauncherServer).ImportCatalog(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(MethodImportCatalog)}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(LauncherServer).ImportCatalog(ctx, req.(*emptypb.Empty))
	})
}

func searchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(LauncherServer).Search(in, stream)
}

// Options configures the Launcher implementation.
type Options struct {
	Profile  string
	Network  bool
	Holidays openinghours.HolidayCalendar
}

// Launcher implements LauncherServer.
type Launcher struct {
	search    *search.Service
	db        *store.DB
	bus       *bus.Bus
	machine   *status.Machine
	importer  *catalog.Importer
	opts      Options
	startedAt time.Time
	logger    *zap.Logger
}

// NewLauncher creates the service. importer may be nil.
func NewLauncher(svc *search.Service, db *store.DB, b *bus.Bus, machine *status.Machine, importer *catalog.Importer, opts Options, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		search:    svc,
		db:        db,
		bus:       b,
		machine:   machine,
		importer:  importer,
		opts:      opts,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// Register adds the service to srv.
func (l *Launcher) Register(srv *grpc.Server) {
	srv.RegisterService(&ServiceDesc, l)
}

// Search streams snapshots until the client cancels or the request timeout
// elapses.
func (l *Launcher) Search(in *structpb.Struct, stream grpc.ServerStream) error {
	var req SearchRequest
	if err := Decode(in, &req); err != nil {
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	filters := search.DefaultFilters()
	if req.Filters != nil {
		filters = *req.Filters
	}
	if !l.opts.Network {
		filters.AllowNetwork = false
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if req.TimeoutMS > 0 {
		ctx, cancel = context.WithTimeout(stream.Context(), time.Duration(req.TimeoutMS)*time.Millisecond)
	} else {
		ctx, cancel = context.WithCancel(stream.Context())
	}
	defer cancel()

	seq := 0
	for snap := range l.search.Search(ctx, req.Query, filters) {
		msg, err := Encode(SearchUpdate{Seq: seq, Snapshot: snap})
		if err != nil {
			return grpcstatus.Error(codes.Internal, err.Error())
		}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
		seq++
	}
	return nil
}

// GetStatus reports the daemon state and catalog statistics.
func (l *Launcher) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	resp := StatusResponse{
		Profile:  l.opts.Profile,
		State:    string(status.Booting),
		UptimeMS: time.Since(l.startedAt).Milliseconds(),
		PID:      os.Getpid(),
		Network:  l.opts.Network,
	}
	if l.machine != nil {
		resp.State = string(l.machine.Current())
		resp.Since = l.machine.Since()
	}
	if l.db != nil {
		counts, err := l.db.Counts(ctx)
		if err != nil {
			return nil, grpcstatus.Errorf(codes.Internal, "count catalog: %v", err)
		}
		resp.Counts = counts
		resp.CatalogHash, _ = l.db.State(ctx, store.StateCatalogHash)
		resp.CatalogImported, _ = l.db.State(ctx, store.StateCatalogImported)
		resp.RatesFetched, _ = l.db.State(ctx, store.StateRatesFetched)
	}
	return encodeResponse(resp)
}

// ParseOpeningHours evaluates an opening_hours expression.
func (l *Launcher) ParseOpeningHours(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req HoursRequest
	if err := Decode(in, &req); err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	var opts []openinghours.Option
	if l.opts.Holidays != nil {
		opts = append(opts, openinghours.WithHolidays(l.opts.Holidays))
	}
	sched := openinghours.ParseAt(req.Expression, at, opts...)
	resp := HoursResponse{Schedule: sched, OpenNow: sched.IsOpen(at)}
	if sched != nil {
		resp.Normalized = sched.String()
	}
	return encodeResponse(resp)
}

// SetLabel sets or clears a custom label and notifies live searches.
func (l *Launcher) SetLabel(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	var req LabelRequest
	if err := Decode(in, &req); err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	req.Key = strings.TrimSpace(req.Key)
	req.Label = strings.TrimSpace(req.Label)
	if req.Key == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "key is required")
	}
	if err := l.db.SetLabel(ctx, req.Key, req.Label); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "set label: %v", err)
	}
	l.bus.Emit(bus.KindStoreLabels, req.Key)
	l.logger.Info("label updated", zap.String("key", req.Key), zap.Bool("cleared", req.Label == ""))
	return &emptypb.Empty{}, nil
}

// ListLabels returns every custom label.
func (l *Launcher) ListLabels(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	labels, err := l.db.ListLabels(ctx)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list labels: %v", err)
	}
	resp := LabelsResponse{Labels: make(map[string]string, len(labels))}
	for _, lb := range labels {
		resp.Labels[lb.Key] = lb.Label
	}
	return encodeResponse(resp)
}

// ImportCatalog re-reads the catalog file now.
func (l *Launcher) ImportCatalog(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if l.importer == nil {
		return nil, grpcstatus.Error(codes.Unavailable, "catalog importer not running")
	}
	res, err := l.importer.Import(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, grpcstatus.Error(codes.Canceled, err.Error())
		}
		return nil, grpcstatus.Errorf(codes.FailedPrecondition, "import catalog: %v", err)
	}
	return encodeResponse(ImportResponse{
		Unchanged:  res.Unchanged,
		Missing:    res.Missing,
		Hash:       res.Hash,
		Counts:     res.Counts,
		DurationMS: res.Duration.Milliseconds(),
	})
}

func encodeResponse(v any) (*structpb.Struct, error) {
	s, err := Encode(v)
	if err != nil {
		return nil, grpcstatus.Error(codes.Internal, err.Error())
	}
	return s, nil
}
