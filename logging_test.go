package main

import "testing"

func TestGetAPI(t *testing.T) {
	cases := map[string]string{
		"/image?test=bla": "image",
		"/models":         "models",
		"/base/status":    "status",
	}
	for uri, want := range cases {
		if got := getAPI(uri); got != want {
			t.Errorf("getAPI(%s) = %s, expected %s", uri, got, want)
		}
	}
}

func TestUtcMsg(t *testing.T) {
	if got := utcMsg([]byte("hello%20world")); got != "hello world" {
		t.Errorf("utcMsg = %q", got)
	}
	if got := utcMsg([]byte("plain")); got != "plain" {
		t.Errorf("utcMsg = %q", got)
	}
}
