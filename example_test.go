package verdoc_test

import (
	"context"
	"fmt"
	"os"

	"github.com/jrhy/verdoc"
)

func ExampleDB_ListVersions() {
	db, err := verdoc.Open(nil)
	if err != nil {
		panic(err)
	}
	defer db.Close()
	db.Set("users/alice/age", "25")
	db.Set("users/alice/age", "30")
	versions, _, _ := db.ListVersions("users/alice/age")
	fmt.Println(versions)

	db.Delete("users/alice/age")
	latest, _, _ := db.Get("users/alice/age", verdoc.Latest)
	fmt.Println(latest)
	first, _, _ := db.Get("users/alice/age", 0)
	fmt.Println(first)

	db.Compact("")
	versions, _, _ = db.ListVersions("users/alice/age")
	fmt.Println(versions)
	// Output:
	// [v1: 30 v0: 25]
	// v2: <deleted>
	// v0: 25
	// [v2: <deleted>]
}

func ExampleDB_Dump() {
	db, err := verdoc.Open(nil)
	if err != nil {
		panic(err)
	}
	defer db.Close()
	db.Set("a", "x")
	db.Set("a", "y")
	db.Set("s/f", "v")
	db.Delete("s/f")
	db.Dump(os.Stdout)
	// Output:
	// Database:
	//   root v0 (g0):
	//     a: v1 "y" -> v0 "x"
	//     s/ v0
	//       f: v1 <deleted> -> v0 "v"
}

func ExampleRoot_Open() {
	ctx := context.Background()
	cfg := &verdoc.Config{
		StoreSnapshotsWith: verdoc.NewInMemoryStore(),
		Compress:           true,
	}
	db, err := verdoc.Open(cfg)
	if err != nil {
		panic(err)
	}
	db.Set("cfg/mode", "fast")
	root, err := db.Checkpoint(ctx)
	if err != nil {
		panic(err)
	}
	db.Set("cfg/mode", "slow")
	db.Close()

	restored, err := root.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer restored.Close()
	mode, _, _ := restored.Get("cfg/mode", verdoc.Latest)
	fmt.Println(mode.Value, restored.GlobalVersion())
	// Output:
	// fast 1
}
