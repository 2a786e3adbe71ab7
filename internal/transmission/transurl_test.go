package transmission

import "testing"

func TestRPCURLGeneration(t *testing.T) {
	u := TransURL("http://localhost")
	if got := u.RPCURL(); got != "http://localhost/transmission/rpc" {
		t.Errorf("RPCURL() = %v, want http://localhost/transmission/rpc", got)
	}
}

func TestFromWebURL(t *testing.T) {
	u, ok := FromWebURL("http://localhost:9091/transmission/web/#confirm")
	if !ok {
		t.Fatal("FromWebURL() not ok")
	}
	if u.Base() != "http://localhost:9091" {
		t.Errorf("Base() = %v, want http://localhost:9091", u.Base())
	}
}

func TestFromWebURLLowercases(t *testing.T) {
	u, ok := FromWebURL("HTTP://LOCALHOST:9091/Transmission/Web")
	if !ok {
		t.Fatal("FromWebURL() not ok")
	}
	if u.Base() != "http://localhost:9091" {
		t.Errorf("Base() = %v, want http://localhost:9091", u.Base())
	}
}
