// Package catalog imports product feeds into the catalog.
package catalog

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

// maxLine bounds a single NDJSON record.
const maxLine = 1 << 20

// Entry is one product line of a feed.
type Entry struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Promotion   bool
	Image       string
}

// ParseEntry decodes a JSON object. Price may be a number or a string.
// Unknown keys are skipped.
func ParseEntry(data []byte) (Entry, error) {
	var (
		e        Entry
		hasPrice bool
	)
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			e.Name = v
			return err
		case "description":
			v, err := d.Str()
			e.Description = v
			return err
		case "promotion":
			v, err := d.Bool()
			e.Promotion = v
			return err
		case "image":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			e.Image = v
			return err
		case "price":
			var raw string
			switch d.Next() {
			case jx.String:
				v, err := d.Str()
				if err != nil {
					return err
				}
				raw = v
			default:
				v, err := d.Num()
				if err != nil {
					return err
				}
				raw = v.String()
			}
			p, err := decimal.NewFromString(raw)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			e.Price, hasPrice = p, true
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return Entry{}, err
	}
	switch {
	case e.Name == "":
		return Entry{}, errors.New("name is required")
	case !hasPrice:
		return Entry{}, errors.New("price is required")
	}
	return e, nil
}

// LineError is a feed line that could not be parsed.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return e.Path + ":" + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

func (e *LineError) Unwrap() error { return e.Err }

// Read streams the gzip NDJSON file at path. fn receives every entry, or a
// *LineError for malformed lines; a non-nil return from fn stops reading.
func Read(ctx context.Context, path string, fn func(Entry, error) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return scan(ctx, path, gz, fn)
}

func scan(ctx context.Context, path string, r io.Reader, fn func(Entry, error) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		e, err := ParseEntry(b)
		if err != nil {
			err = &LineError{Path: path, Line: line, Err: err}
		}
		if err := fn(e, err); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
