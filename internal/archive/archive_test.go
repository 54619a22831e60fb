package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"area710/internal/config"
	"area710/internal/metrics"
	"area710/internal/project"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]string{}
	for _, f := range zr.File {
		if f.Method != zip.Deflate {
			t.Errorf("%s stored with method %d", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		out[f.Name] = string(b)
	}
	return out
}

func TestExport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "events.json", "[]")
	writeFile(t, root, "gallery.json", `[{"id": 1}]`)
	writeFile(t, root, "img/plakat.png", "png")
	writeFile(t, root, "gallery-images/2026/buehne.jpg", "jpg")
	writeFile(t, root, "notes.txt", "not archived")

	data, err := Export(project.Project{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"events.json":                    "[]",
		"gallery.json":                   `[{"id": 1}]`,
		"img/plakat.png":                 "png",
		"gallery-images/2026/buehne.jpg": "jpg",
	}
	if got := zipEntries(t, data); !reflect.DeepEqual(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}
}

func TestExportOmitsMissingPieces(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "gallery.json", "[]")

	data, err := Export(project.Project{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	got := zipEntries(t, data)
	if len(got) != 1 || got["gallery.json"] != "[]" {
		t.Errorf("entries = %v", got)
	}

	empty, err := Export(project.Project{Root: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(zipEntries(t, empty)); n != 0 {
		t.Errorf("empty project produced %d entries", n)
	}
}

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if got != "area710_backup_20260102_030405.zip" {
		t.Errorf("FileName = %q", got)
	}
}

func TestDirSinkKeepsNewest(t *testing.T) {
	root := t.TempDir()
	sink := DirSink{Dir: "backups", Keep: 2}
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		name := FileName(base.Add(time.Duration(i) * time.Hour))
		loc, err := sink.Put(ctx, root, name, []byte(strconv.Itoa(i)))
		if err != nil {
			t.Fatal(err)
		}
		if loc != filepath.Join(root, "backups", name) {
			t.Errorf("location = %s", loc)
		}
	}
	writeFile(t, root, "backups/keep-me.txt", "x")
	if _, err := sink.Put(ctx, root, FileName(base.Add(5*time.Hour)), []byte("5")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "backups"))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	want := []string{
		"area710_backup_20260301_150000.zip",
		"area710_backup_20260301_170000.zip",
		"keep-me.txt",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("files = %v, want %v", names, want)
	}
}

func TestDirSinkAbsoluteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	loc, err := DirSink{Dir: dir}.Put(context.Background(), "/ignored", "a.zip", []byte("z"))
	if err != nil {
		t.Fatal(err)
	}
	if loc != filepath.Join(dir, "a.zip") {
		t.Errorf("location = %s", loc)
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "events.json", "[]")

	var ws project.Workspace
	m := metrics.New()
	s, err := NewScheduler("0 3 * * *", &ws, DirSink{Dir: "backups", Keep: 5}, m)
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC) }

	if _, err := s.RunOnce(context.Background()); !errors.Is(err, project.ErrNoProject) {
		t.Fatalf("without project err = %v", err)
	}

	if _, err := ws.Select(root); err != nil {
		t.Fatal(err)
	}
	loc, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(loc) != "area710_backup_20260501_030000.zip" {
		t.Errorf("location = %s", loc)
	}
	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatal(err)
	}
	if got := zipEntries(t, data); got["events.json"] != "[]" {
		t.Errorf("archive entries = %v", got)
	}

	if n, err := testutil.GatherAndCount(m.Registry(), "area710_archives_total"); err != nil || n != 2 {
		t.Errorf("archive series = %d, %v", n, err)
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	if _, err := NewScheduler("every night", &project.Workspace{}, DirSink{}, nil); err == nil {
		t.Error("expected error")
	}
}

// fakeS3 answers PutObject requests against path-style URLs.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPut {
		return response(http.StatusNotImplemented, ""), nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
		if body, err = decodeChunked(body); err != nil {
			return response(http.StatusBadRequest, ""), nil
		}
	}
	key := strings.TrimPrefix(req.URL.Path, "/")
	if strings.HasPrefix(key, "denied/") {
		return response(http.StatusForbidden, "<Error><Code>AccessDenied</Code><Message>denied</Message></Error>"), nil
	}
	f.mu.Lock()
	f.objects[key] = body
	f.types[key] = req.Header.Get("Content-Type")
	f.mu.Unlock()
	resp := response(http.StatusOK, "")
	resp.Header.Set("ETag", `"etag"`)
	return resp, nil
}

func response(status int, body string) *http.Response {
	h := http.Header{}
	if body != "" {
		h.Set("Content-Type", "application/xml")
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// decodeChunked strips aws-chunked framing: "<hex>[;ext]\r\n<data>\r\n"
// repeated, terminated by a zero-size chunk and optional trailers.
func decodeChunked(b []byte) ([]byte, error) {
	var out []byte
	for {
		i := bytes.Index(b, []byte("\r\n"))
		if i < 0 {
			return nil, errors.New("missing chunk header")
		}
		size, _, _ := strings.Cut(string(b[:i]), ";")
		n, err := strconv.ParseInt(size, 16, 64)
		if err != nil {
			return nil, err
		}
		b = b[i+2:]
		if n == 0 {
			return out, nil
		}
		if int64(len(b)) < n+2 {
			return nil, errors.New("short chunk")
		}
		out = append(out, b[:n]...)
		b = b[n+2:]
	}
}

func newTestS3Sink(t *testing.T, bucket string, rt http.RoundTripper) *S3Sink {
	t.Helper()
	sink, err := NewS3Sink(context.Background(), config.S3Config{
		Bucket:          bucket,
		Region:          "eu-central-1",
		Endpoint:        "https://s3.mock.local",
		Prefix:          "area710",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	}, &http.Client{Transport: rt})
	if err != nil {
		t.Fatal(err)
	}
	return sink
}

func TestS3SinkPut(t *testing.T) {
	rt := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	sink := newTestS3Sink(t, "backups", rt)

	data := []byte("PK\x03\x04 zip\r\nwith a line break")
	loc, err := sink.Put(context.Background(), "/project", "area710_backup_20260101_000000.zip", data)
	if err != nil {
		t.Fatal(err)
	}
	if loc != "s3://backups/area710/area710_backup_20260101_000000.zip" {
		t.Errorf("location = %s", loc)
	}

	key := "backups/area710/area710_backup_20260101_000000.zip"
	if got := rt.objects[key]; !bytes.Equal(got, data) {
		t.Errorf("stored %q, want %q", got, data)
	}
	if rt.types[key] != "application/zip" {
		t.Errorf("content type = %q", rt.types[key])
	}
	if sink.Name() != "s3" {
		t.Errorf("Name = %q", sink.Name())
	}
}

func TestS3SinkPutError(t *testing.T) {
	rt := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	sink := newTestS3Sink(t, "denied", rt)
	if _, err := sink.Put(context.Background(), "", "a.zip", []byte("x")); err == nil {
		t.Error("expected error")
	}
}

func TestNewS3SinkRequiresBucket(t *testing.T) {
	if _, err := NewS3Sink(context.Background(), config.S3Config{}, nil); err == nil {
		t.Error("expected error")
	}
}
