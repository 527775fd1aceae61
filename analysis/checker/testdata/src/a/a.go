package a

func copies() int {
	x := 5
	y := x   // want `x is constant 5`
	return y // want `y is constant 5`
}

func branch(s string) string {
	if s == "go" {
		return s // want `s is constant "go"`
	}
	return s
}

func sized() int8 {
	var a int8 = 100
	b := a * 2
	return b // want `b is constant -56`
}

func cases() int {
	a := 1
	switch 1 {
	case a:
		return a // want `a is constant 1`
	}
	return 0
}

func loop(n int) int {
	i := 0
	for i < n {
		i++
	}
	return i
}

func literal() func() float64 {
	return func() float64 {
		k := 2.5
		_ = k
		return k * 2 // want `k is constant 2.5`
	}
}
