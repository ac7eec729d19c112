package s3

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // S3 ETags are MD5 digests
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	mockBucket   = "mock-bucket"
	metaHeader   = "X-Amz-Meta-"
	mockPageSize = 1000
)

// NewMockForTests returns a Store whose client talks to an in-memory bucket
// over a fake HTTP transport. Objects get MD5 ETags like real S3 and listings
// are paginated.
func NewMockForTests() *Store {
	return newMockStore(mockPageSize)
}

func newMockStore(pageSize int) *Store {
	bucket := &fakeBucket{objects: make(map[string]fakeObject), pageSize: pageSize, now: time.Now}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: bucket}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client, bucket: mockBucket}
}

type fakeObject struct {
	body         []byte
	contentType  string
	etag         string
	metadata     map[string]string
	lastModified time.Time
}

// fakeBucket serves the path-style object and ListObjectsV2 requests the
// Store issues for a single bucket.
type fakeBucket struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	pageSize int
	now      func() time.Time
	requests int
}

func (b *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++

	bucket, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	if bucket != mockBucket {
		return respond(http.StatusNotFound, nil, nil), nil
	}
	q := req.URL.Query()
	switch {
	case req.Method == http.MethodGet && q.Get("list-type") == "2":
		return b.list(q.Get("prefix"), q.Get("continuation-token"))
	case req.Method == http.MethodPut:
		return b.put(key, req)
	case req.Method == http.MethodGet || req.Method == http.MethodHead:
		obj, ok := b.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		var body []byte
		if req.Method == http.MethodGet {
			body = obj.body
		}
		return respond(http.StatusOK, objectHeaders(obj), body), nil
	case req.Method == http.MethodDelete:
		delete(b.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func (b *fakeBucket) put(key string, req *http.Request) (*http.Response, error) {
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	body := raw
	if isChunked(req.Header) {
		if body, err = decodeChunked(raw); err != nil {
			return respond(http.StatusBadRequest, nil, []byte(err.Error())), nil
		}
	}
	sum := md5.Sum(body) //nolint:gosec
	obj := fakeObject{
		body:         body,
		contentType:  req.Header.Get("Content-Type"),
		etag:         hex.EncodeToString(sum[:]),
		metadata:     map[string]string{},
		lastModified: b.now().UTC().Truncate(time.Second),
	}
	for name, values := range req.Header {
		if len(name) > len(metaHeader) && strings.EqualFold(name[:len(metaHeader)], metaHeader) && len(values) > 0 {
			obj.metadata[strings.ToLower(name[len(metaHeader):])] = values[0]
		}
	}
	b.objects[key] = obj
	return respond(http.StatusOK, http.Header{"ETag": {strconv.Quote(obj.etag)}}, nil), nil
}

type listResult struct {
	XMLName               xml.Name      `xml:"ListBucketResult"`
	Name                  string        `xml:"Name"`
	Prefix                string        `xml:"Prefix"`
	KeyCount              int           `xml:"KeyCount"`
	IsTruncated           bool          `xml:"IsTruncated"`
	NextContinuationToken string        `xml:"NextContinuationToken,omitempty"`
	Contents              []listContent `xml:"Contents"`
}

type listContent struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	ETag         string `xml:"ETag"`
	LastModified string `xml:"LastModified"`
}

// list pages through keys in order; the continuation token is the last key
// of the previous page.
func (b *fakeBucket) list(prefix, after string) (*http.Response, error) {
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	res := listResult{Name: mockBucket, Prefix: prefix}
	if len(keys) > b.pageSize {
		keys = keys[:b.pageSize]
		res.IsTruncated = true
		res.NextContinuationToken = keys[len(keys)-1]
	}
	for _, k := range keys {
		obj := b.objects[k]
		res.Contents = append(res.Contents, listContent{
			Key:          k,
			Size:         len(obj.body),
			ETag:         strconv.Quote(obj.etag),
			LastModified: obj.lastModified.Format(time.RFC3339),
		})
	}
	res.KeyCount = len(res.Contents)
	body, err := xml.Marshal(res)
	if err != nil {
		return nil, err
	}
	return respond(http.StatusOK, http.Header{"Content-Type": {"application/xml"}}, append([]byte(xml.Header), body...)), nil
}

func objectHeaders(obj fakeObject) http.Header {
	h := http.Header{
		"Content-Length": {strconv.Itoa(len(obj.body))},
		"Content-Type":   {obj.contentType},
		"ETag":           {strconv.Quote(obj.etag)},
		"Last-Modified":  {obj.lastModified.Format(http.TimeFormat)},
	}
	for k, v := range obj.metadata {
		h.Set(metaHeader+k, v)
	}
	return h
}

func respond(status int, h http.Header, body []byte) *http.Response {
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func isChunked(h http.Header) bool {
	return strings.Contains(h.Get("Content-Encoding"), "aws-chunked") || h.Get("X-Amz-Decoded-Content-Length") != ""
}

// decodeChunked strips aws-chunked framing: hex size lines (optionally with
// ;chunk-signature), each followed by that many bytes, ending at a zero-size
// chunk. Trailing checksum headers are ignored.
func decodeChunked(b []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(b))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("chunk header: %w", err)
		}
		sizeField, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), ";")
		size, err := strconv.ParseUint(strings.TrimSpace(sizeField), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("chunk size %q: %w", sizeField, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, r, int64(size)); err != nil {
			return nil, fmt.Errorf("chunk body: %w", err)
		}
		crlf := make([]byte, 2)
		if _, err := io.ReadFull(r, crlf); err != nil || string(crlf) != "\r\n" {
			return nil, errors.New("chunk not terminated")
		}
	}
}
