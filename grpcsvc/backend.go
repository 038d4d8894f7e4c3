package grpcsvc

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blockberries/hostberry/app"
	"github.com/blockberries/hostberry/modules/ibc"
	"github.com/blockberries/hostberry/store"
)

// backend is the read-side shared by the three query services: scope
// resolution, typed IBC reads, and proof generation.
type backend struct {
	app      *app.App
	revision uint64
}

func newBackend(application *app.App, revision uint64) backend {
	return backend{app: application, revision: revision}
}

// contextAt opens a read-only IBC context at the requested revision
// (0 = latest) and returns the resolved revision.
func (b backend) contextAt(ctx context.Context, height uint64) (*ibc.Context, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, status.Error(codes.DeadlineExceeded, err.Error())
	}
	scope, err := b.app.State().QueryAt(store.Height(height))
	if err != nil {
		return nil, 0, status.Error(codes.NotFound, err.Error())
	}
	resolved := height
	if resolved == 0 {
		resolved = b.app.State().Version()
	}
	ibcCtx := ibc.NewContext(scope, ibc.NewHeight(b.revision, resolved), time.Time{})
	return ibcCtx, resolved, nil
}

// prove generates an ICS-23 proof for an IBC path at the given revision.
func (b backend) prove(height uint64, rel store.Path) ([]byte, ibc.Height, error) {
	proof, err := b.app.State().Prove(store.Height(height), ibc.FullPath(rel))
	if err != nil {
		return nil, ibc.Height{}, status.Error(codes.Internal, err.Error())
	}
	data, err := proof.Marshal()
	if err != nil {
		return nil, ibc.Height{}, status.Error(codes.Internal, err.Error())
	}
	return data, ibc.NewHeight(b.revision, proof.Version), nil
}

func notFound(format string, args ...any) error {
	return status.Errorf(codes.NotFound, format, args...)
}

func invalidArgument(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}
