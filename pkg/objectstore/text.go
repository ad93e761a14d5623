package objectstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/antokel/cloudkit/pkg/errdefs"
)

// Text is a sub-view of Client specialized for string content.
// Obtain one via Client.Text().
type Text struct {
	client *Client
}

// Read downloads the object fully into memory and decodes it as UTF-8.
// Invalid encodings classify as decode errors, missing keys as not found.
func (t *Text) Read(ctx context.Context, cloudPath string) (string, error) {
	c := t.client
	key := c.resolveKey(cloudPath)

	if err := c.wait(ctx); err != nil {
		return "", err
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", c.wrapRemote("Read", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", c.wrapRemote("Read", key, err)
	}

	if !utf8.Valid(data) {
		return "", &errdefs.OpError{
			Op:       "Read",
			Service:  errdefs.ServiceS3,
			Resource: c.bucket,
			Key:      key,
			Err:      errdefs.ErrDecode,
		}
	}

	return string(data), nil
}

// Write encodes content as UTF-8 and uploads it as the object body,
// overwriting any existing object at that key.
func (t *Text) Write(ctx context.Context, content, cloudPath string) error {
	c := t.client
	key := c.resolveKey(cloudPath)

	if err := c.wait(ctx); err != nil {
		return err
	}

	body := []byte(content)
	size := int64(len(body))
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: &size,
	})
	if err != nil {
		return c.wrapRemote("Write", key, err)
	}
	return nil
}

// StreamLines reads the remote object incrementally and yields its text
// lines. The returned Lines is a single-pass sequence: exhausting it
// requires calling StreamLines again to read from the start. A final line
// without trailing newline is yielded once, not lost or duplicated.
//
// The caller must Close the returned Lines.
func (t *Text) StreamLines(ctx context.Context, cloudPath string) (*Lines, error) {
	c := t.client
	key := c.resolveKey(cloudPath)

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.wrapRemote("StreamLines", key, err)
	}

	return &Lines{
		r:      bufio.NewReader(out.Body),
		body:   out.Body,
		client: c,
		key:    key,
	}, nil
}

// Lines is a lazy, finite, single-pass sequence of text lines.
//
// Not safe for concurrent use.
type Lines struct {
	r      *bufio.Reader
	body   io.ReadCloser
	client *Client
	key    string
	done   bool
}

// Next returns the next line, without its terminator. It returns io.EOF
// after the final line has been yielded.
func (l *Lines) Next() (string, error) {
	if l.done {
		return "", io.EOF
	}

	line, err := readLine(l.r)
	if errors.Is(err, io.EOF) {
		l.done = true
		_ = l.body.Close()
		if len(line) == 0 {
			return "", io.EOF
		}
		// Final line without trailing newline.
		err = nil
	}
	if err != nil {
		l.done = true
		_ = l.body.Close()
		return "", l.client.wrapRemote("StreamLines", l.key, err)
	}

	if !utf8.Valid(line) {
		l.done = true
		_ = l.body.Close()
		return "", &errdefs.OpError{
			Op:       "StreamLines",
			Service:  errdefs.ServiceS3,
			Resource: l.client.bucket,
			Key:      l.key,
			Err:      errdefs.ErrDecode,
		}
	}

	return string(line), nil
}

// Close releases the underlying object body. Safe to call more than once.
func (l *Lines) Close() error {
	if l.done {
		return nil
	}
	l.done = true
	return l.body.Close()
}

// readLine accumulates one line from r, handling fragments longer than the
// reader's buffer. The trailing newline is stripped. At end of input the
// remaining bytes are returned together with io.EOF.
func readLine(r *bufio.Reader) ([]byte, error) {
	var out []byte
	for {
		frag, err := r.ReadSlice('\n')
		out = append(out, frag...)
		if err == nil {
			return bytes.TrimSuffix(out, []byte("\n")), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return out, err
	}
}

// StreamCSV reads the remote object incrementally as delimiter-separated
// values with a header row, yielding one map per data row. A zero delimiter
// means comma.
//
// The caller must Close the returned Rows.
func (t *Text) StreamCSV(ctx context.Context, cloudPath string, delimiter rune) (*Rows, error) {
	c := t.client
	key := c.resolveKey(cloudPath)

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, c.wrapRemote("StreamCSV", key, err)
	}

	reader := csv.NewReader(out.Body)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		_ = out.Body.Close()
		return nil, c.wrapRemote("StreamCSV", key, fmt.Errorf("reading header: %w", err))
	}

	return &Rows{
		reader: reader,
		header: header,
		body:   out.Body,
		client: c,
		key:    key,
	}, nil
}

// Rows is a lazy, single-pass sequence of header-keyed CSV records.
//
// Not safe for concurrent use.
type Rows struct {
	reader *csv.Reader
	header []string
	body   io.ReadCloser
	client *Client
	key    string
	done   bool
}

// Header returns the column names from the first row.
func (r *Rows) Header() []string {
	return r.header
}

// Next returns the next record keyed by header name. Rows shorter than the
// header omit the missing columns. It returns io.EOF after the final row.
func (r *Rows) Next() (map[string]string, error) {
	if r.done {
		return nil, io.EOF
	}

	record, err := r.reader.Read()
	if errors.Is(err, io.EOF) {
		r.done = true
		_ = r.body.Close()
		return nil, io.EOF
	}
	if err != nil {
		r.done = true
		_ = r.body.Close()
		return nil, r.client.wrapRemote("StreamCSV", r.key, err)
	}

	row := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if i < len(record) {
			row[name] = record[i]
		}
	}
	return row, nil
}

// Close releases the underlying object body. Safe to call more than once.
func (r *Rows) Close() error {
	if r.done {
		return nil
	}
	r.done = true
	return r.body.Close()
}
