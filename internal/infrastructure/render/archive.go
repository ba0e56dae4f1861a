package render

import (
	"archive/tar"
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/gzip"

	"dairyledger/internal/domain/billingrun"
)

// CombineArchive packs rendered artifacts into one gzipped tar so a batch
// run yields a single download.
func CombineArchive(artifacts []billingrun.Artifact) (billingrun.Artifact, error) {
	var buf bytes.Buffer

	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return billingrun.Artifact{}, fmt.Errorf("create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)

	now := time.Now().UTC()
	for _, a := range artifacts {
		hdr := &tar.Header{
			Name:    a.Name,
			Mode:    0o644,
			Size:    int64(len(a.Data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return billingrun.Artifact{}, fmt.Errorf("write header %s: %w", a.Name, err)
		}
		if _, err := tw.Write(a.Data); err != nil {
			return billingrun.Artifact{}, fmt.Errorf("write %s: %w", a.Name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return billingrun.Artifact{}, fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return billingrun.Artifact{}, fmt.Errorf("close gzip: %w", err)
	}

	return billingrun.Artifact{
		Name:        fmt.Sprintf("invoices-%s.tar.gz", now.Format("20060102-150405")),
		ContentType: "application/gzip",
		Data:        buf.Bytes(),
	}, nil
}
