package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerSetDetach(t *testing.T) {
	var hs handlerSet
	var got []string

	detachA := hs.add(func(u string) bool { return strings.Contains(u, "statuses") }, func(r Response) {
		got = append(got, "a:"+r.URL)
	})
	detachB := hs.add(nil, func(r Response) { got = append(got, "b:"+r.URL) })

	for _, h := range hs.matching("/api/v1/accounts/1/statuses") {
		h(Response{URL: "s"})
	}
	assert.ElementsMatch(t, []string{"a:s", "b:s"}, got)

	got = nil
	assert.Len(t, hs.matching("/other"), 1)

	detachA()
	detachA()
	assert.False(t, hs.empty())
	detachB()
	assert.True(t, hs.empty())
}

func TestFakePageScript(t *testing.T) {
	f := &FakePage{Script: []FetchStep{
		Step(429, ""),
		{Err: errors.New("target closed")},
		Step(200, `[{"id":"1","content":"x"}]`),
	}}
	ctx := context.Background()

	r, err := f.Fetch(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 429, r.Status)

	_, err = f.Fetch(ctx, "u2")
	assert.Error(t, err)

	r, err = f.Fetch(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, 200, r.Status)

	r, err = f.Fetch(ctx, "u4")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(r.Body))

	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, f.Fetched())
}

func TestFakePageEmit(t *testing.T) {
	f := &FakePage{}
	var seen []Response
	detach := f.OnResponse(func(u string) bool { return u == "match" }, func(r Response) {
		seen = append(seen, r)
	})
	assert.True(t, f.Attached())

	f.Emit(Response{URL: "match", Status: 200})
	f.Emit(Response{URL: "other", Status: 200})
	detach()
	f.Emit(Response{URL: "match", Status: 200})

	require.Len(t, seen, 1)
	assert.False(t, f.Attached())
}

func TestFakePageCookies(t *testing.T) {
	f := &FakePage{}
	var jar CookieJar = f
	ctx := context.Background()

	require.NoError(t, jar.SetCookies(ctx, []Cookie{{Name: "_session", Value: "abc", Domain: ".truthsocial.com"}}))
	cookies, err := jar.Cookies(ctx)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)
}
