package measure

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
)

type csvStream struct {
	path string
	f    *os.File
	w    *csv.Writer
}

func (s *csvStream) close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

// FileSink keeps one append-only CSV file per node and channel. The stream
// table is sized once for every node of the run; only opened nodes accept rows.
type FileSink struct {
	dir     string
	prefix  string
	streams [numChannels][]*csvStream
	written [numChannels]atomic.Uint64
}

// NewFileSink creates a sink for nodes node indexes. Files are created by Open.
func NewFileSink(dir, prefix string, nodes int) *FileSink {
	s := &FileSink{dir: dir, prefix: prefix}
	for ch := range s.streams {
		s.streams[ch] = make([]*csvStream, nodes)
	}
	return s
}

// FileName returns the file name used for user's stream on ch.
func FileName(prefix string, user int, ch Channel) string {
	return fmt.Sprintf("%s_user%d_%s.csv", prefix, user, ch)
}

// ParseFileName splits a name produced by FileName. Directory components
// are ignored.
func ParseFileName(name string) (prefix string, user int, ch Channel, ok bool) {
	base := strings.TrimSuffix(filepath.Base(name), ".csv")
	i := strings.LastIndex(base, "_user")
	if i < 0 {
		return "", 0, 0, false
	}
	rest := base[i+len("_user"):]
	j := strings.IndexByte(rest, '_')
	if j <= 0 {
		return "", 0, 0, false
	}
	u, err := strconv.Atoi(rest[:j])
	if err != nil || u < 0 {
		return "", 0, 0, false
	}
	c, err := ParseChannel(rest[j+1:])
	if err != nil {
		return "", 0, 0, false
	}
	return base[:i], u, c, true
}

// Open creates the rssi and throughput files of node, named after user, and
// writes their headers. If any file cannot be created the files already
// opened for node are closed again.
func (s *FileSink) Open(node NodeIndex, user int) error {
	if int(node) >= len(s.streams[PathLoss]) {
		return fmt.Errorf("open streams: node %d outside %d registered nodes", node, len(s.streams[PathLoss]))
	}
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return err
		}
	}
	opened := make([]*csvStream, 0, len(Channels))
	for _, ch := range Channels {
		st, err := createStream(filepath.Join(s.dir, FileName(s.prefix, user, ch)), ch.Header())
		if err != nil {
			for _, o := range opened {
				_ = o.close()
			}
			return err
		}
		opened = append(opened, st)
	}
	for i, ch := range Channels {
		if old := s.streams[ch][node]; old != nil {
			_ = old.close()
		}
		s.streams[ch][node] = opened[i]
	}
	return nil
}

func createStream(path string, header []string) (*csvStream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &csvStream{path: path, f: f, w: w}, nil
}

// Has reports whether node has an open stream on ch.
func (s *FileSink) Has(ch Channel, node NodeIndex) bool {
	if ch < 0 || ch >= numChannels {
		return false
	}
	return int(node) < len(s.streams[ch]) && s.streams[ch][node] != nil
}

// Append writes row to node's stream on ch. It is a no-op for streams that
// are not open.
func (s *FileSink) Append(ch Channel, node NodeIndex, row Row) error {
	if !s.Has(ch, node) {
		return nil
	}
	st := s.streams[ch][node]
	if err := st.w.Write([]string{formatFloat(row.Time), formatFloat(row.Value)}); err != nil {
		return fmt.Errorf("append %s: %w", st.path, err)
	}
	s.written[ch].Add(1)
	return nil
}

// Written returns the number of rows appended on ch over all nodes.
func (s *FileSink) Written(ch Channel) uint64 {
	if ch < 0 || ch >= numChannels {
		return 0
	}
	return s.written[ch].Load()
}

// Close flushes and closes every open stream. It is safe to call more than
// once; the first error encountered is returned.
func (s *FileSink) Close() error {
	var err error
	for ch := range s.streams {
		for i, st := range s.streams[ch] {
			if st == nil {
				continue
			}
			if e := st.close(); e != nil && err == nil {
				err = e
			}
			s.streams[ch][i] = nil
		}
	}
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
