package main

import "testing"

func TestRootCommand_RegistersCommands(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"serve"}, {"worker"}, {"sync"}, {"providers"}, {"connectors", "check"}, {"factors", "import"}} {
		cmd, _, err := rootCmd.Find(args)
		if err != nil || cmd == nil || cmd.Name() != args[len(args)-1] {
			t.Fatalf("%v command not registered: cmd=%v err=%v", args, cmd, err)
		}
	}
}

func TestSyncCommand_Flags(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"connector", "force"} {
		if syncCmd.Flags().Lookup(name) == nil {
			t.Fatalf("sync --%s flag not defined", name)
		}
	}
}

func TestCommandUsesStructuredLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "serve", args: []string{"serve"}, want: true},
		{name: "worker", args: []string{"worker"}, want: true},
		{name: "sync", args: []string{"sync"}, want: true},
		{name: "providers", args: []string{"providers"}, want: false},
		{name: "connectors check", args: []string{"connectors", "check"}, want: false},
		{name: "factors import", args: []string{"factors", "import"}, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd, _, err := rootCmd.Find(tc.args)
			if err != nil {
				t.Fatalf("Find(%v) error = %v", tc.args, err)
			}
			if cmd == nil {
				t.Fatalf("Find(%v) returned nil command", tc.args)
			}

			if got := commandUsesStructuredLogging(cmd); got != tc.want {
				t.Fatalf("commandUsesStructuredLogging(%q) = %v, want %v", cmd.CommandPath(), got, tc.want)
			}
		})
	}
}
