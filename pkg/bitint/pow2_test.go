// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected bool
	}{
		{-2, false},     // Negative number
		{0, false},      // Zero
		{1, true},       // One
		{8, true},       // Power of two
		{10, false},     // Not power of two
		{4096, true},    // Transform length
		{1 << 20, true}, // Large power of two
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%t", tt.n, tt.expected), func(t *testing.T) {
			result := IsPowerOfTwo(tt.n)
			if result != tt.expected {
				t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, result, tt.expected)
			}
		})
	}
}

func TestPow2(t *testing.T) {
	tests := []struct {
		exp      int
		expected int
	}{
		{-3, 1}, // Negative exponent
		{0, 1},
		{5, 32},    // Smallest column count
		{10, 1024}, // Largest column count
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.exp, tt.expected), func(t *testing.T) {
			if got := Pow2(tt.exp); got != tt.expected {
				t.Errorf("Pow2(%d) = %d, expected %d", tt.exp, got, tt.expected)
			}
		})
	}

	for exp := range 21 {
		if !IsPowerOfTwo(Pow2(exp)) {
			t.Fatalf("Pow2(%d) = %d is not a power of two", exp, Pow2(exp))
		}
	}
}

func BenchmarkIsPowerOfTwo(b *testing.B) {
	var i int
	b.ReportAllocs()
	for b.Loop() {
		IsPowerOfTwo(i % 10000)
		i++
	}
}
