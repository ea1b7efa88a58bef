package automatic

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"lukechampine.com/frand"
)

const seedFileHeader = "# gridwar self-play seeds, one base64 (URL alphabet, unpadded) 32-byte seed per line\n"

// GenerateSeeds returns n fresh seeds. Game i of a batch run with these
// seeds always gets the same block layout.
func GenerateSeeds(n int) [][32]byte {
	seeds := make([][32]byte, n)
	for i := range seeds {
		seeds[i] = frand.Entropy256()
	}
	return seeds
}

// WriteSeeds writes seeds to w, one per line, after a comment line.
func WriteSeeds(w io.Writer, seeds [][32]byte) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(seedFileHeader); err != nil {
		return err
	}
	for _, seed := range seeds {
		if _, err := bw.WriteString(base64.RawURLEncoding.EncodeToString(seed[:]) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveSeeds writes seeds to the file at path.
func SaveSeeds(seeds [][32]byte, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating seed file: %w", err)
	}
	if err := WriteSeeds(f, seeds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadSeeds parses what WriteSeeds wrote. Blank lines and lines starting
// with # are skipped.
func ReadSeeds(r io.Reader) ([][32]byte, error) {
	var seeds [][32]byte
	sc := bufio.NewScanner(r)
	for lineNum := 1; sc.Scan(); lineNum++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("seed on line %d: %w", lineNum, err)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("seed on line %d has %d bytes, want 32", lineNum, len(raw))
		}
		var seed [32]byte
		copy(seed[:], raw)
		seeds = append(seeds, seed)
	}
	return seeds, sc.Err()
}

// LoadSeeds reads the seed file at path.
func LoadSeeds(path string) ([][32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return ReadSeeds(f)
}
