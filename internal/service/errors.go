package service

import (
	"errors"
	"strings"
	"time"

	"github.com/carebot/carebot-api/internal/store"
	"github.com/carebot/carebot-api/pkg/metrics"
)

var (
	// ErrNoFile means the multipart request carried no file part.
	ErrNoFile = errors.New("no file uploaded")

	// ErrUnsupportedFileType means the file's MIME type is not on the
	// upload allow-list.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileTooLarge means the file exceeds the configured byte ceiling.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// commitStore commits the record store and feeds the commit metrics. The
// collector may be nil in tests.
func commitStore(st *store.Store, m *metrics.Collector) error {
	start := time.Now()
	err := st.Commit()
	if m != nil {
		m.StoreCommitDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			m.StoreCommitErrors.Inc()
		}
	}
	return err
}
