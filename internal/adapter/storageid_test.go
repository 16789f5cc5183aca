package adapter

import "testing"

func TestStorageIDRoundTrip(t *testing.T) {
	cases := []StorageID{
		{ProviderID: "mysql-user-directory", ExternalID: 0},
		{ProviderID: "mysql-user-directory", ExternalID: 7},
		{ProviderID: "mysql-user-directory", ExternalID: 1234567},
		{ProviderID: "a1b2c3d4-e5f6-7890-abcd-ef1234567890", ExternalID: 42},
		{ProviderID: "provider:with:colons", ExternalID: 9},
	}
	for _, want := range cases {
		got, err := ParseStorageID(want.String())
		if err != nil {
			t.Fatalf("parse %q: %v", want.String(), err)
		}
		if got != want {
			t.Fatalf("round trip mismatch: %q parsed to %+v", want.String(), got)
		}
	}
}

func TestParseStorageIDRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"f:",
		"f:provider",
		"f:provider:",
		"f::12",
		"f:provider:abc",
		"x:provider:12",
		"provider:12",
	}
	for _, raw := range cases {
		if _, err := ParseStorageID(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}
