package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/bitrise-io/go-objectupload/storage"
)

type fakeFileInfo struct {
	name string
	size int64
	dir  bool
}

func (i fakeFileInfo) Name() string       { return i.name }
func (i fakeFileInfo) Size() int64        { return i.size }
func (i fakeFileInfo) Mode() os.FileMode  { return 0o644 }
func (i fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (i fakeFileInfo) IsDir() bool        { return i.dir }
func (i fakeFileInfo) Sys() interface{}   { return nil }

type fakeFile struct {
	*bytes.Reader
	fs *fakeFS
}

func (f fakeFile) Close() error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.fs.closes++
	return nil
}

type fakeFS struct {
	mu     sync.Mutex
	files  map[string][]byte
	dirs   map[string]bool
	opens  int
	closes int
}

func newFakeFS(files map[string][]byte) *fakeFS {
	return &fakeFS{files: files, dirs: map[string]bool{}}
}

func (f *fakeFS) Stat(name string) (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs[name] {
		return fakeFileInfo{name: name, dir: true}, nil
	}
	content, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return fakeFileInfo{name: name, size: int64(len(content))}, nil
}

func (f *fakeFS) Open(name string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	f.opens++
	return fakeFile{Reader: bytes.NewReader(content), fs: f}, nil
}

func (f *fakeFS) write(name string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = content
}

// putFunc scripts the behavior of one PutObject call.
type putFunc func(input storage.PutObjectInput) (storage.ObjectInfo, error)

// scriptedClient replays one putFunc per attempt, the last one repeating.
type scriptedClient struct {
	mu     sync.Mutex
	script []putFunc
	inputs []storage.PutObjectInput
}

func (c *scriptedClient) BucketExists(context.Context, string) (bool, error) {
	return true, nil
}

func (c *scriptedClient) MakeBucket(context.Context, string) error {
	return errors.New("unexpected call")
}

func (c *scriptedClient) PutObject(_ context.Context, input storage.PutObjectInput) (storage.ObjectInfo, error) {
	c.mu.Lock()
	call := len(c.inputs)
	c.inputs = append(c.inputs, input)
	step := c.script[len(c.script)-1]
	if call < len(c.script) {
		step = c.script[call]
	}
	c.mu.Unlock()

	return step(input)
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inputs)
}

// streamAll consumes the body in chunks of chunkSize, reporting each one, and succeeds.
func streamAll(chunkSize int, object storage.ObjectInfo) putFunc {
	return func(input storage.PutObjectInput) (storage.ObjectInfo, error) {
		buf := make([]byte, chunkSize)
		for {
			n, err := input.Body.Read(buf)
			if n > 0 && input.Progress != nil {
				input.Progress(int64(n))
			}
			if err == io.EOF {
				return object, nil
			}
			if err != nil {
				return storage.ObjectInfo{}, err
			}
		}
	}
}

// streamThenFail consumes n bytes, reporting them, then fails with err.
func streamThenFail(n int, err error) putFunc {
	return func(input storage.PutObjectInput) (storage.ObjectInfo, error) {
		buf := make([]byte, n)
		read, _ := io.ReadFull(input.Body, buf)
		if input.Progress != nil {
			input.Progress(int64(read))
		}
		return storage.ObjectInfo{}, err
	}
}

func fail(err error) putFunc {
	return func(storage.PutObjectInput) (storage.ObjectInfo, error) {
		return storage.ObjectInfo{}, err
	}
}

// fakeTimer fires immediately and remembers every requested wait.
type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Time{}
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	return t.c
}

// attemptDisplay records the progress of every attempt separately.
type attemptDisplay struct {
	mu       sync.Mutex
	totals   []int64
	seen     [][]int64
	finished int
}

func (d *attemptDisplay) Start(total int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.totals = append(d.totals, total)
	d.seen = append(d.seen, []int64{})
}

func (d *attemptDisplay) Add(n int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	current := d.seen[len(d.seen)-1]
	var last int64
	if len(current) > 0 {
		last = current[len(current)-1]
	}
	d.seen[len(d.seen)-1] = append(current, last+n)
}

func (d *attemptDisplay) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished++
}
