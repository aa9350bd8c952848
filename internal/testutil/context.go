package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

func withUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userKey{}, username)
}

func userOf(r *http.Request) string {
	username, _ := r.Context().Value(userKey{}).(string)
	return username
}

func readCloser(data []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(data))
}
