// Package storage appends completed matches to a CSV log kept on local disk or in Cloud Storage.
package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"

	"lol-monitor/pkg/lol"
)

// Header is written once, when the log is created.
var Header = []string{"Match Start", "Match Stop", "Duration", "Victory", "Kills", "Deaths", "Assists", "Champion", "Blue team", "Red team"}

const timeLayout = "2006-01-02 15:04:05"

// CSV is an append-only match log.
type CSV struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
	object    string
	mu        sync.Mutex
}

// New creates a CSV log. With a non-empty localPath rows go to that file, otherwise
// to object in bucket.
func New(client *storage.Client, bucket, object, localPath string, logger *slog.Logger) *CSV {
	return &CSV{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
		object:    object,
	}
}

// Location describes where rows are written.
func (c *CSV) Location() string {
	if c.localPath != "" {
		return c.localPath
	}
	return "gs://" + c.bucket + "/" + c.object
}

// Record appends one row for m.
func (c *CSV) Record(ctx context.Context, m *lol.Match) error {
	return c.Append(ctx, Row(m))
}

// Row converts a match to a CSV row matching Header.
func Row(m *lol.Match) []string {
	blue, red := teamsBySide(m.Teams)
	return []string{
		m.Start.Format(timeLayout),
		m.End.Format(timeLayout),
		m.Duration.Round(time.Second).String(),
		strconv.FormatBool(m.Victory),
		strconv.Itoa(m.Kills),
		strconv.Itoa(m.Deaths),
		strconv.Itoa(m.Assists),
		m.Champion,
		blue,
		red,
	}
}

func teamsBySide(teams []lol.Team) (blue, red string) {
	for i, t := range teams {
		names := strings.Join(t.Players, ", ")
		switch {
		case t.ID == 100 || (t.ID == 0 && i == 0):
			blue = names
		case t.ID == 200 || (t.ID == 0 && i == 1):
			red = names
		}
	}
	return blue, red
}

// Append writes row, creating the log with a header first if it does not exist.
func (c *CSV) Append(ctx context.Context, row []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.localPath != "" {
		return c.appendLocal(row)
	}
	return c.appendObject(ctx, row)
}

func (c *CSV) appendLocal(row []string) error {
	if dir := filepath.Dir(c.localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.OpenFile(c.localPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			c.logger.Warn("Failed to close csv file", "error", closeErr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	c.logger.Info("Match written to CSV file", "path", c.localPath, "match_start", row[0])
	return nil
}

// appendObject rewrites the object with the new row, guarded by a generation
// precondition so concurrent writers retry instead of losing rows.
func (c *CSV) appendObject(ctx context.Context, row []string) error {
	obj := c.client.Bucket(c.bucket).Object(c.object)

	err := retry.Do(
		func() error {
			var existing []byte
			var generation int64

			r, err := obj.NewReader(ctx)
			switch {
			case errors.Is(err, storage.ErrObjectNotExist):
			case err != nil:
				return fmt.Errorf("open storage reader: %w", err)
			default:
				existing, err = io.ReadAll(r)
				generation = r.Attrs.Generation
				if closeErr := r.Close(); closeErr != nil {
					c.logger.Warn("Failed to close reader", "error", closeErr)
				}
				if err != nil {
					return fmt.Errorf("read from storage: %w", err)
				}
			}

			buf := bytes.NewBuffer(existing)
			cw := csv.NewWriter(buf)
			if len(existing) == 0 {
				if err := cw.Write(Header); err != nil {
					return retry.Unrecoverable(fmt.Errorf("write header: %w", err))
				}
			}
			if err := cw.Write(row); err != nil {
				return retry.Unrecoverable(fmt.Errorf("write row: %w", err))
			}
			cw.Flush()

			cond := storage.Conditions{DoesNotExist: true}
			if generation != 0 {
				cond = storage.Conditions{GenerationMatch: generation}
			}
			w := obj.If(cond).NewWriter(ctx)
			w.ContentType = "text/csv"
			if _, writeErr := w.Write(buf.Bytes()); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					c.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			c.logger.Info("Retrying CSV append after error", "attempt", n, "object", c.object, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("append after retries: %w", err)
	}

	c.logger.Info("Match written to CSV object", "bucket", c.bucket, "object", c.object, "match_start", row[0])
	return nil
}
