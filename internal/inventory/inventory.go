// Package inventory reads and writes pre-supplied resource lists.
//
// The format is UTF-8 text with one "type|display_name|id" line per resource,
// where type is a kind's external name such as "volumes" or "routers".
// Lists can live on the local filesystem or in object storage (s3://bucket/key).
package inventory

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/imamik/osclean/internal/platform/s3"
	"github.com/imamik/osclean/internal/resource"
)

// KeypairSentinelID is assigned to keypair lines without an id. Keypairs are
// deleted by name, so the id is never sent to the API.
const KeypairSentinelID = "0"

const fieldSeparator = "|"

// LineError describes one rejected line.
type LineError struct {
	Line int
	Text string
	Msg  string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Msg)
}

// Parse reads a resource list. Bad lines are skipped and reported in the
// returned aggregate error; the inventory holds every valid line regardless.
func Parse(r io.Reader) (resource.Inventory, error) {
	inv := resource.Inventory{}
	var errs []error

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		kind, id, name, err := parseLine(line)
		if err != nil {
			errs = append(errs, &LineError{Line: lineNo, Text: line, Msg: err.Error()})
			continue
		}
		if prev, dup := inv[kind][id]; dup && id == KeypairSentinelID {
			errs = append(errs, &LineError{Line: lineNo, Text: line,
				Msg: fmt.Sprintf("keypair without id conflicts with %q; give it an id or list it in a separate file", prev)})
			continue
		}
		inv.Set(kind, id, name)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("failed to read resource list: %w", err))
	}
	return inv, utilerrors.NewAggregate(errs)
}

// parseLine splits "type|display_name|id". Display names may contain the
// separator: the first field is the type, the last is the id and everything
// between is the name. A line with an empty name or id has no id; the
// non-empty value is its display name.
func parseLine(line string) (resource.Kind, string, string, error) {
	parts := strings.Split(line, fieldSeparator)
	if len(parts) < 3 {
		return 0, "", "", fmt.Errorf("expected type|display_name|id")
	}

	kind, err := resource.ParseKind(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, "", "", err
	}

	name := strings.TrimSpace(strings.Join(parts[1:len(parts)-1], fieldSeparator))
	id := strings.TrimSpace(parts[len(parts)-1])

	if name == "" || id == "" {
		if name == "" {
			name = id
		}
		if kind != resource.Keypair {
			return 0, "", "", fmt.Errorf("resource type %s has no id", kind)
		}
		if name == "" {
			return 0, "", "", fmt.Errorf("keypair line has neither name nor id")
		}
		id = KeypairSentinelID
	}
	return kind, id, name, nil
}

// Write renders inv in list format, ordered by kind then display name.
func Write(w io.Writer, inv resource.Inventory) error {
	bw := bufio.NewWriter(w)
	for _, ref := range inv.Rows() {
		name := ref.Name
		if name == "" {
			name = ref.ID
		}
		if _, err := fmt.Fprintf(bw, "%s|%s|%s\n", ref.Kind, name, ref.ID); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ObjectStore is the subset of the S3 client used for remote lists.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// StoreFactory builds an ObjectStore on demand so local runs never touch S3.
type StoreFactory func(ctx context.Context) (ObjectStore, error)

// DefaultStore builds an S3 client from OSCLEAN_S3_* environment variables.
func DefaultStore(ctx context.Context) (ObjectStore, error) {
	return s3.NewClient(ctx, s3.OptionsFromEnv())
}

// Loader reads and writes lists from local paths or s3:// URLs.
type Loader struct {
	Store StoreFactory
}

// NewLoader returns a Loader using DefaultStore for s3:// locations.
func NewLoader() *Loader {
	return &Loader{Store: DefaultStore}
}

// Load reads a list from src. Line errors are returned alongside the
// inventory; only a failure to read src at all yields a nil inventory.
func (l *Loader) Load(ctx context.Context, src string) (resource.Inventory, error) {
	data, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(data))
}

// Save writes inv to dst.
func (l *Loader) Save(ctx context.Context, dst string, inv resource.Inventory) error {
	var buf bytes.Buffer
	if err := Write(&buf, inv); err != nil {
		return err
	}

	if bucket, key, ok := s3.ParseURL(dst); ok {
		store, err := l.Store(ctx)
		if err != nil {
			return fmt.Errorf("failed to create object store client: %w", err)
		}
		return store.PutObject(ctx, bucket, key, buf.Bytes())
	}
	if s3.IsURL(dst) {
		return fmt.Errorf("invalid object location %q: expected s3://bucket/key", dst)
	}

	if err := os.WriteFile(dst, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write resource list: %w", err)
	}
	return nil
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	if bucket, key, ok := s3.ParseURL(src); ok {
		store, err := l.Store(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create object store client: %w", err)
		}
		return store.GetObject(ctx, bucket, key)
	}
	if s3.IsURL(src) {
		return nil, fmt.Errorf("invalid object location %q: expected s3://bucket/key", src)
	}

	// #nosec G304
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource list: %w", err)
	}
	return data, nil
}
