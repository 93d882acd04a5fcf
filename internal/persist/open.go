// SPDX-License-Identifier: MPL-2.0

package persist

import (
	"context"
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Spec selects and configures a backend.
type Spec struct {
	Backend     string
	FileDir     string
	PostgresDSN string
	Table       string
	S3          S3Config
}

// Open builds the adapter named by spec.Backend. The returned closer
// releases backend resources and is never nil.
func Open(ctx context.Context, spec Spec) (Adapter, io.Closer, error) {
	switch spec.Backend {
	case "", BackendMemory:
		return NewMemory(), nopCloser{}, nil
	case BackendFile:
		f, err := NewFile(spec.FileDir)
		if err != nil {
			return nil, nil, err
		}
		return f, nopCloser{}, nil
	case BackendPostgres:
		p, err := OpenPostgres(ctx, spec.PostgresDSN, spec.Table)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case BackendS3:
		s, err := NewS3(ctx, spec.S3)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", spec.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
