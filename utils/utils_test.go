package utils

import (
	"testing"

	logging "github.com/op/go-logging"
)

func TestMinMaxInt(t *testing.T) {
	if MinInt(3, -2) != -2 || MinInt(-2, 3) != -2 {
		t.Errorf("MinInt wrong")
	}
	if MaxInt(3, -2) != 3 || MaxInt(-2, 3) != 3 {
		t.Errorf("MaxInt wrong")
	}
}

func TestSetupLogging(t *testing.T) {
	SetupLogging(false)
	if logging.GetLevel("utils") != logging.INFO {
		t.Errorf("default level = %v, want INFO", logging.GetLevel("utils"))
	}
	SetupLogging(true)
	if logging.GetLevel("utils") != logging.DEBUG {
		t.Errorf("verbose level = %v, want DEBUG", logging.GetLevel("utils"))
	}
}

func Benchmark_MinInt(b *testing.B) {
	s := 0
	for i := 0; i < b.N; i++ {
		s += MinInt(i, 1<<10)
	}
	_ = s
}
