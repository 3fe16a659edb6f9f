package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"
)

// CompressedSnapshotExt selects zstd compression for ExportSnapshot.
const CompressedSnapshotExt = ".zst"

// ExportSnapshot writes the full mapping as a JSON object of key to float
// array. NaN and infinite components are written as null. The mapping is copied under the read lock and written afterwards.
// The file is replaced atomically: data goes to a temporary file in the same
// directory, is fsynced, then renamed over path. Paths ending in ".zst" are
// zstd-compressed.
func (s *VectorStore) ExportSnapshot(path string) error {
	data := s.snapshot()

	return writeFileAtomic(path, func(w io.Writer) error {
		if !strings.HasSuffix(path, CompressedSnapshotExt) {
			return json.NewEncoder(w).Encode(data)
		}
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		if err := json.NewEncoder(enc).Encode(data); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	})
}

// snapshotVector encodes like []float32 but writes non-finite values as null.
type snapshotVector []float32

func (v snapshotVector) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(v)*8)
	buf = append(buf, '[')
	for i, x := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendJSONFloat(buf, x)
	}
	return append(buf, ']'), nil
}

// appendJSONFloat follows encoding/json's float32 formatting.
func appendJSONFloat(buf []byte, x float32) []byte {
	f := float64(x)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, "null"...)
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
		format = 'e'
	}
	buf = strconv.AppendFloat(buf, f, format, -1, 32)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(buf)
		if n >= 4 && buf[n-4] == 'e' && buf[n-3] == '-' && buf[n-2] == '0' {
			buf[n-2] = buf[n-1]
			buf = buf[:n-1]
		}
	}
	return buf
}

// syncDirFunc is replaced in tests.
var syncDirFunc = syncDir

func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0644); err != nil {
		return err
	}
	if err = unix.Fsync(int(tmp.Fd())); err != nil {
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	if serr := syncDirFunc(dir); serr != nil {
		return fmt.Errorf("snapshot written to %s but not yet durable: %w", path, serr)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := unix.Fsync(int(d.Fd())); err != nil {
		return fmt.Errorf("sync directory %s: %w", dir, err)
	}
	return nil
}
