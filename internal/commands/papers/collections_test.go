package papers

import "testing"

func TestCollectionsCmdRegistersAllSubcommands(t *testing.T) {
	got := map[string]bool{}
	for _, c := range collectionsCmd.Commands() {
		got[c.Name()] = true
	}
	for _, n := range []string{
		"create", "list", "get", "update", "delete",
		"add-paper", "remove-paper", "papers", "for-paper",
	} {
		if !got[n] {
			t.Errorf("missing subcommand %q in collections command group", n)
		}
	}
}

func TestCollectionUpdateRequiresTwoArgs(t *testing.T) {
	if err := collUpdateCmd.Args(collUpdateCmd, []string{"id-only"}); err == nil {
		t.Error("expected error for update with one arg")
	}
	if err := collUpdateCmd.Args(collUpdateCmd, []string{"id", "new-name"}); err != nil {
		t.Errorf("expected no error for update with two args, got %v", err)
	}
}

func TestCollAddPaperRequiresTwoArgs(t *testing.T) {
	if err := collAddPaperCmd.Args(collAddPaperCmd, []string{"only-one"}); err == nil {
		t.Error("expected error for add-paper with one arg")
	}
}
