package clmm

import "fmt"

func errTickRange(tick int32) error {
	return fmt.Errorf("clmm: tick %d out of range [%d,%d]", tick, MinTick, MaxTick)
}

func errPriceRange() error {
	return fmt.Errorf("clmm: sqrt price below tick %d floor", MinTick)
}
