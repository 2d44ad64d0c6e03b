package stats

import "testing"

// BenchmarkListener_OnMessage measures the overhead of recording one
// delivery (atomic operations).
func BenchmarkListener_OnMessage(b *testing.B) {
	l := New()
	body := make([]byte, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.OnMessage(nil, body)
	}
}

// BenchmarkListener_Snapshot measures the cost of taking a snapshot.
func BenchmarkListener_Snapshot(b *testing.B) {
	l := New()
	l.OnConnected(nil, nil)
	l.OnMessage(nil, []byte("x"))
	l.OnError(nil, []byte("boom"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = l.Snapshot()
	}
}

// BenchmarkNilListener verifies nil-safe no-ops have zero overhead.
func BenchmarkNilListener(b *testing.B) {
	var l *Listener
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.OnMessage(nil, nil)
		l.OnSend("SEND")
	}
}
