package main

import (
	"testing"

	"github.com/maison-parfum/maison/internal/app"
	_ "github.com/maison-parfum/maison/testing"
)

func TestMainReturnsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatal("expected test mode to be enabled")
	}
	main()
}
