package dlmm

import "fmt"

func errPriceRange() error {
	return fmt.Errorf("dlmm: price below configured bin-id floor")
}
