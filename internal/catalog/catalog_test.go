package catalog

import "testing"

func TestAvailable(t *testing.T) {
	t.Parallel()

	types, errLoad := Available()
	if errLoad != nil {
		t.Fatalf("load catalog: %v", errLoad)
	}
	if len(types) == 0 {
		t.Fatalf("expected catalog categories")
	}

	auth, ok := types["authentication"]
	if !ok || len(auth) == 0 {
		t.Fatalf("expected authentication plugin types, got %v", types)
	}
	for category, entries := range types {
		for _, entry := range entries {
			if entry.Name == "" {
				t.Fatalf("category %s has a plugin type with no name", category)
			}
			if entry.Description == "" {
				t.Fatalf("plugin type %s has no description", entry.Name)
			}
		}
	}
}

func TestAvailable_Cached(t *testing.T) {
	t.Parallel()

	first, _ := Available()
	second, _ := Available()
	if len(first) != len(second) {
		t.Fatalf("expected stable catalog across calls")
	}
}
