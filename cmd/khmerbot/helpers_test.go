package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Viper is process-global, so these tests use their own key namespace and
// do not run in parallel.
func TestFlagOrViperPrecedence(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Int("poll-limit", 100, "")
	cmd.Flags().String("mode", "polling", "")
	cmd.Flags().Duration("wait", time.Second, "")
	cmd.Flags().Bool("sync", true, "")

	viper.Set("helpers_test.poll_limit", 25)
	viper.Set("helpers_test.mode", "webhook")

	// Unchanged flag: the viper value wins when set.
	if got := flagOrViperInt(cmd, "poll-limit", "helpers_test.poll_limit"); got != 25 {
		t.Fatalf("flagOrViperInt() = %d, want viper value 25", got)
	}
	if got := flagOrViperString(cmd, "mode", "helpers_test.mode"); got != "webhook" {
		t.Fatalf("flagOrViperString() = %q, want viper value webhook", got)
	}

	// Changed flag: the flag wins over viper.
	if err := cmd.Flags().Set("poll-limit", "7"); err != nil {
		t.Fatalf("Flags().Set() error = %v", err)
	}
	if got := flagOrViperInt(cmd, "poll-limit", "helpers_test.poll_limit"); got != 7 {
		t.Fatalf("flagOrViperInt() = %d, want changed flag 7", got)
	}

	// Neither changed nor in viper: the flag default holds.
	if got := flagOrViperDuration(cmd, "wait", "helpers_test.absent"); got != time.Second {
		t.Fatalf("flagOrViperDuration() = %v, want flag default 1s", got)
	}
	if got := flagOrViperBool(cmd, "sync", "helpers_test.absent_b"); got != true {
		t.Fatalf("flagOrViperBool() = %v, want flag default true", got)
	}
}
