package verdoc

import (
	"bytes"
	"fmt"
	"testing"
)

func benchmarkStdMapInsert(factor int, b *testing.B) {
	m := map[string]string{}
	for n := 0; n < factor*b.N; n++ {
		m[fmt.Sprint(n)] = "v"
	}
}

func BenchmarkStdMapInsert1(b *testing.B)   { benchmarkStdMapInsert(1, b) }
func BenchmarkStdMapInsert100(b *testing.B) { benchmarkStdMapInsert(100, b) }
func BenchmarkStdMapInsert10k(b *testing.B) { benchmarkStdMapInsert(10_000, b) }

func benchmarkHashMapPut(factor int, b *testing.B) {
	m := NewHashMap(DefaultBucketCount)
	for n := 0; n < factor*b.N; n++ {
		m.Put(fmt.Sprint(n), "v", uint64(n), nil)
	}
}

func BenchmarkHashMapPut1(b *testing.B)   { benchmarkHashMapPut(1, b) }
func BenchmarkHashMapPut100(b *testing.B) { benchmarkHashMapPut(100, b) }
func BenchmarkHashMapPut10k(b *testing.B) { benchmarkHashMapPut(10_000, b) }

func benchmarkSetPath(depth int, b *testing.B) {
	db, err := Open(nil)
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()
	prefix := ""
	for i := 0; i < depth; i++ {
		prefix += fmt.Sprintf("d%d/", i)
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		if _, err := db.Set(fmt.Sprintf("%sk%d", prefix, n%1000), "v"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSetPath1(b *testing.B)  { benchmarkSetPath(0, b) }
func BenchmarkSetPath4(b *testing.B)  { benchmarkSetPath(3, b) }
func BenchmarkSetPath16(b *testing.B) { benchmarkSetPath(15, b) }

func benchmarkGetVersion(history int, b *testing.B) {
	d := NewDocument()
	defer d.Free()
	for n := 0; n < history; n++ {
		d.SetFieldPath("a/b/c", fmt.Sprint(n), uint64(n))
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		d.GetField("a/b/c", uint64(n%history))
	}
}

func BenchmarkGetVersion1(b *testing.B)   { benchmarkGetVersion(1, b) }
func BenchmarkGetVersion100(b *testing.B) { benchmarkGetVersion(100, b) }
func BenchmarkGetVersion10k(b *testing.B) { benchmarkGetVersion(10_000, b) }

func benchmarkSerialize(keys int, b *testing.B) {
	d := NewDocument()
	for n := 0; n < keys; n++ {
		d.SetFieldPath(fmt.Sprintf("s%d/k%d", n%10, n), "value", uint64(n))
	}
	root := NewVersionNode(d, 0, 0, nil, freeDocument)
	defer root.Free()
	var buf bytes.Buffer
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		buf.Reset()
		if err := Serialize(&buf, root); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(buf.Len()))
}

func BenchmarkSerialize100(b *testing.B) { benchmarkSerialize(100, b) }
func BenchmarkSerialize10k(b *testing.B) { benchmarkSerialize(10_000, b) }
