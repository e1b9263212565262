// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package report

import (
	"bytes"
	"testing"
)

func TestCalculateBasicHashes(t *testing.T) {
	info, err := CalculateBasicHashes(bytes.NewReader([]byte("abc")))
	if err != nil {
		t.Fatal(err)
	}
	if info.Md5 != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("wrong md5: %s", info.Md5)
	}
	if info.Sha1 != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("wrong sha1: %s", info.Sha1)
	}
	if info.Sha256 != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("wrong sha256: %s", info.Sha256)
	}
	if info.Sha512 != "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a"+
		"2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f" {
		t.Errorf("wrong sha512: %s", info.Sha512)
	}
	if info.Sha3_512 != "b751850b1a57168a5693cd924b6b096e08f621827444f70d884f5d0240d2712e"+
		"10e116e9192af3c91a7ec57647e3934057340b4cf408d5a56592f8274eec53f0" {
		t.Errorf("wrong sha3-512: %s", info.Sha3_512)
	}
}

func TestCalculateBasicHashesEmpty(t *testing.T) {
	info, err := CalculateBasicHashes(bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	if info.Md5 != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("wrong md5 for empty input: %s", info.Md5)
	}
}
