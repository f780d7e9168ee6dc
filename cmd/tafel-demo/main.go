// Package main implements a demonstration benchmark suite.
package main

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/skylenet/tafelrunde/benchmark"
	"github.com/skylenet/tafelrunde/callable"
	"github.com/skylenet/tafelrunde/cli"
	"github.com/skylenet/tafelrunde/plan"
	"github.com/skylenet/tafelrunde/suite"
)

// version is the suite version printed in the run header.
const version = "0.1"

func main() {
	s := suite.New("testbench",
		suite.WithVersion(version),
		suite.WithArgFiller(fillArguments),
	)

	adder := must(s.Add(callable.New("add_up", addUp, callable.Free("a"), callable.Free("b"))))
	adder.SetWarmup(func() {
		body := adder.Body()
		_ = body.Call(body.Bind(map[string]any{"a": 99, "b": 9}))
	})

	must(s.Add(callable.New("calculate_unreasonably", calculateUnreasonably, callable.Free("maximum"))))

	divider := must(s.Add(callable.New("divide", divide, callable.Free("a"), callable.Defaulted("numerator", 10))))
	divider.AddCall(map[string]any{"a": 5})
	divider.AddCall(map[string]any{"a": 7})

	cli.Main(s)
}

// fillArguments supplies calls for benchmarks registered without any.
func fillArguments(p *plan.Planner) {
	switch {
	case p.HasFreeParameter("maximum"):
		for _, maximum := range []int{10, 100, 1000, 10000} {
			p.AddCall(map[string]any{"maximum": maximum})
		}
	case p.HasFreeParameter("a") && p.HasFreeParameter("b"):
		p.CallCombinations(plan.Domains{
			{Name: "a", Values: plan.Range(0, 3)},
			{Name: "b", Values: plan.Range(5, 7)},
		})
	}
}

func addUp(args *callable.Args) error {
	a, b := args.Int("a"), args.Int("b")
	if (a+b)%5 == 0 {
		return errors.New("a and b is divisible through 5")
	}
	args.Keep("sum", a+b)
	return nil
}

func calculateUnreasonably(args *callable.Args) error {
	end := time.Now().Add(time.Duration(args.Int("maximum")) * time.Second / 20000)
	acc := 0
	for time.Now().Before(end) {
		time.Sleep(time.Duration(rand.Float64() * float64(100*time.Microsecond)))
		acc++
	}
	args.Keep("acc", acc)
	return nil
}

func divide(args *callable.Args) error {
	args.Keep("quotient", args.Int("numerator")/(args.Int("a")-5))
	return nil
}

func must(b *benchmark.Benchmark, err error) *benchmark.Benchmark {
	if err != nil {
		panic(err)
	}
	return b
}
