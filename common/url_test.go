package common

import "testing"

func TestURLString(t *testing.T) {
	tests := []struct {
		url      URL
		expected string
	}{
		{URL{Protocol: "https", Host: "app.open-cosmos.com", Port: 443, Path: "/api/data/v0/stac"}, "https://app.open-cosmos.com/api/data/v0/stac"},
		{URL{Protocol: "http", Host: "localhost", Port: 8080, Path: "stac/"}, "http://localhost:8080/stac"},
		{URL{Protocol: "http", Host: "localhost", Port: 80}, "http://localhost"},
	}
	for _, test := range tests {
		if s := test.url.String(); s != test.expected {
			t.Errorf("expected %s, got %s", test.expected, s)
		}
	}
}

func TestURLWithSuffix(t *testing.T) {
	u := URL{Protocol: "https", Host: "h", Port: 443, Path: "/base/"}
	if s := u.WithSuffix("/collections/c1"); s != "https://h/base/collections/c1" {
		t.Errorf("unexpected %s", s)
	}
	if s := u.WithSuffix("search"); s != "https://h/base/search" {
		t.Errorf("unexpected %s", s)
	}
}

func TestParseURL(t *testing.T) {
	u, err := ParseURL("http://localhost:9090/api/storage")
	if err != nil {
		t.Fatal(err)
	}
	if u.Protocol != "http" || u.Host != "localhost" || u.Port != 9090 || u.Path != "/api/storage" {
		t.Errorf("unexpected %+v", u)
	}
	u, err = ParseURL("https://login.open-cosmos.com/oauth/token")
	if err != nil {
		t.Fatal(err)
	}
	if u.Port != 443 {
		t.Errorf("expected default port 443, got %d", u.Port)
	}
	if _, err := ParseURL("no-scheme"); err == nil {
		t.Error("expected an error")
	}

	var s URL
	if err := s.Set("https://storage.example.com/v0"); err != nil || s.String() != "https://storage.example.com/v0" {
		t.Errorf("Set: %v %s", err, s.String())
	}
}
