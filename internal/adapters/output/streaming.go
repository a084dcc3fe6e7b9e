// internal/adapters/output/streaming.go
package output

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"proxylens/internal/core/domain"
	"proxylens/internal/platform/logx"
)

// JSONLSink escribe un registro NDJSON por objetivo terminado.
// Cada línea se vuelca al disco en cuanto llega, así un escaneo
// interrumpido conserva lo ya escrito.
type JSONLSink struct {
	mu        sync.Mutex
	w         *bufio.Writer
	closer    io.Closer
	threshold float64
	written   int
	logger    logx.Logger
}

// NewJSONLSink crea (o trunca) path y escribe en él.
func NewJSONLSink(path string, threshold float64, logger logx.Logger) (*JSONLSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create jsonl file: %w", err)
	}

	sink := NewJSONLWriter(f, threshold, logger)
	sink.closer = f
	sink.logger.Debug("jsonl sink opened", "file", path)
	return sink, nil
}

// NewJSONLWriter escribe en w; Close no cierra w.
func NewJSONLWriter(w io.Writer, threshold float64, logger logx.Logger) *JSONLSink {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &JSONLSink{
		w:         bufio.NewWriter(w),
		threshold: threshold,
		logger:    logger.With("component", "jsonl-sink"),
	}
}

// Write implementa ports.ResultSink.
func (s *JSONLSink) Write(_ context.Context, rec *domain.ScanRecord) error {
	data, err := json.Marshal(NewJSONLine(rec, s.threshold))
	if err != nil {
		return fmt.Errorf("failed to encode jsonl line: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write jsonl line: %w", err)
	}
	s.written++
	return s.w.Flush()
}

// Written retorna el número de líneas escritas.
func (s *JSONLSink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close vuelca y cierra el archivo subyacente.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	s.logger.Debug("jsonl sink closed", "lines", s.written)
	return err
}
