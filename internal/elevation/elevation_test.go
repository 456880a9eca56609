package elevation

import (
	"context"
	"errors"
	"testing"

	"github.com/ecairns22/DolphinDock/internal/runner"
)

func TestNetSession(t *testing.T) {
	ctx := context.Background()

	fake := runner.NewFakeRunner()
	if !(NetSession{Runner: fake}).IsElevated(ctx) {
		t.Error("exit 0 should mean elevated")
	}
	if !fake.Called("net.exe session") {
		t.Error("expected net.exe session")
	}

	fake.SetResponse("net.exe session", runner.Response{ExitCode: 2, Output: "System error 5 has occurred.\r\nAccess is denied."})
	if (NetSession{Runner: fake}).IsElevated(ctx) {
		t.Error("access denied should mean not elevated")
	}

	fake.SetResponse("net.exe session", runner.Response{Err: errors.New("not found")})
	if (NetSession{Runner: fake}).IsElevated(ctx) {
		t.Error("launch failure should mean not elevated")
	}
}

func TestFixed(t *testing.T) {
	if !Fixed(true).IsElevated(context.Background()) || Fixed(false).IsElevated(context.Background()) {
		t.Error("Fixed should return its value")
	}
}
