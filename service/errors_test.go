package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
)

func TestPermanent(t *testing.T) {
	err := fmt.Errorf("Permanent error")
	if Temporary(err) {
		t.Fail()
	}
	err = &url.Error{Err: err}
	if Temporary(err) {
		t.Fail()
	}
	if Temporary(ErrRemote{Status: 400}) {
		t.Error("400 must not be temporary")
	}
}

func TestTemporary(t *testing.T) {
	err := MakeTemporary(fmt.Errorf("Temporary error"))
	if !Temporary(err) {
		t.Fail()
	}
	err = fmt.Errorf("Warp: %w", err)
	if !Temporary(err) {
		t.Fail()
	}
	if !Temporary(context.Canceled) {
		t.Fail()
	}
	if !Temporary(context.DeadlineExceeded) {
		t.Fail()
	}
	err = fmt.Errorf("Warp: %w", &url.Error{Err: err})
	if !Temporary(err) {
		t.Fail()
	}
	for _, status := range []int{408, 429, 500, 503} {
		if !Temporary(fmt.Errorf("Warp: %w", ErrRemote{Status: status})) {
			t.Errorf("%d must be temporary", status)
		}
	}
}

func TestMapStatus(t *testing.T) {
	body := []byte(`{"errors":[{"message":"item exists","type":"conflict","trace_id":"abc"}]}`)
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{404, func(err error) bool { var e ErrNotFound; return errors.As(err, &e) && e.Type == "item" && e.ID == "i1" }},
		{409, func(err error) bool { var e ErrAlreadyExists; return errors.As(err, &e) && e.ID == "i1" }},
		{401, func(err error) bool { var e ErrUnauthorized; return errors.As(err, &e) && e.Status == 401 }},
		{403, func(err error) bool { var e ErrUnauthorized; return errors.As(err, &e) && e.Status == 403 }},
		{500, func(err error) bool { var e ErrRemote; return errors.As(err, &e) && e.Status == 500 && e.Body == string(body) }},
		{422, func(err error) bool { var e ErrRemote; return errors.As(err, &e) && e.Status == 422 }},
	}
	for _, test := range tests {
		err := MapStatus(fmt.Errorf("Do: %w", ResponseError("POST", "http://stac/items", test.status, body)), "item", "i1")
		if !test.check(err) {
			t.Errorf("status %d: unexpected error %v", test.status, err)
		}
	}

	if err := MapStatus(fmt.Errorf("plain"), "item", "i1"); err.Error() != "plain" {
		t.Errorf("non remote errors must be returned untouched, got %v", err)
	}
}

func TestErrorDetails(t *testing.T) {
	body := []byte(`{"errors":[{"message":"bad bbox","field":"bbox","type":"validation","source":"stac","trace_id":"t1"}]}`)
	err := ResponseError("PUT", "http://stac", 400, body)
	expected := "PUT http://stac: 400 Bad Request: bad bbox (type: validation) (field: bbox) (source: stac) (trace_id: t1)"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	if d := ParseErrorDetails([]byte("not json")); d != nil {
		t.Errorf("expected no detail, got %v", d)
	}
}

func TestErrLocalFile(t *testing.T) {
	err := fmt.Errorf("upload: %w", ErrLocalFile{Path: "/tmp/a.tif", Err: context.Canceled})
	var lf ErrLocalFile
	if !errors.As(err, &lf) || lf.Path != "/tmp/a.tif" {
		t.Errorf("expected ErrLocalFile, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("ErrLocalFile must unwrap")
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if Cancelled(ctx) != nil {
		t.Error("context is not cancelled yet")
	}
	cancel()
	err := Cancelled(ctx)
	var ce ErrCancelled
	if !errors.As(err, &ce) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestMergeErrors(t *testing.T) {
	tmp := MakeTemporary(fmt.Errorf("tmp"))
	fatal := fmt.Errorf("fatal")
	if err := MergeErrors(false, tmp, nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := MergeErrors(true, tmp, fatal); err == nil || Temporary(err) {
		t.Errorf("expected fatal error first, got %v", err)
	}
}
