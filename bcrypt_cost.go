//go:build !race

package sesam

func passwordHashCost() int {
	return 14
}
