package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/squadlink/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

type constScorer float64

func (c constScorer) Score(string, string) float64 { return float64(c) }

func TestIndex(t *testing.T) {
	Convey("Given candidates whose names normalize alike", t, func() {
		idx := NewIndex([]Candidate{
			{Name: "Bukayo Saka Jr", Value: "€120m"},
			{Name: "Rice", Value: "€110m"},
			{Name: "Bukayo Saka", Value: "€130m"},
			{Name: "RiceRice", Value: "€100m"},
		})

		Convey("Then names are unique in first-seen order and the later value wins", func() {
			So(idx.Len(), ShouldEqual, 2)
			So(idx.names, ShouldResemble, []string{"Bukayo Saka", "Rice"})
			So(idx.values["Bukayo Saka"], ShouldEqual, "€130m")
			So(idx.values["Rice"], ShouldEqual, "€100m")
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Given the valuation pool of the Caicedo example", t, func() {
		idx := NewIndex([]Candidate{
			{Name: "Moisés Caicedo", Value: "€90m"},
			{Name: "Kevin De Bruyne", Value: "€25m"},
		})

		Convey("When resolving with the default folding scorer", func() {
			m := New(idx).Resolve("Moises Caicedo")

			Convey("Then the accent is ignored and the match scores 100", func() {
				So(m.Score, ShouldEqual, 100)
				So(m.Accepted, ShouldBeTrue)
				So(m.Candidate, ShouldEqual, "Moisés Caicedo")
				So(m.Value, ShouldEqual, "€90m")
			})
		})

		Convey("When resolving without preprocessing", func() {
			r := New(idx, WithScorer(scoring.NewTokenSortScorer(scoring.WithProcessor(scoring.Identity))))
			m := r.Resolve("Moises Caicedo")

			Convey("Then the score is 200*13/28 and still above 85", func() {
				So(m.Score, ShouldAlmostEqual, 2600.0/28.0, 1e-9)
				So(m.Accepted, ShouldBeTrue)
				So(m.Value, ShouldEqual, "€90m")
			})
		})

		Convey("When nothing is similar", func() {
			m := New(idx).Resolve("Erling Haaland")

			Convey("Then the sentinel is returned", func() {
				So(m.Accepted, ShouldBeFalse)
				So(m.Value, ShouldEqual, DefaultSentinel)
				So(m.Score, ShouldBeLessThan, DefaultThreshold)
			})
		})
	})

	Convey("Given candidates on the threshold boundary", t, func() {
		at := NewIndex([]Candidate{{Name: "abcdefghijklmnopqxyz", Value: "at"}})
		below := NewIndex([]Candidate{{Name: "abcdefghijklmnopqrstuz012", Value: "below"}})

		Convey("When the best score is exactly 85", func() {
			m := New(at, WithSentinel("none")).Resolve("abcdefghijklmnopqrst")

			Convey("Then it is accepted", func() {
				So(m.Score, ShouldEqual, 85)
				So(m.Accepted, ShouldBeTrue)
				So(m.Value, ShouldEqual, "at")
			})
		})

		Convey("When the best score is 84", func() {
			m := New(below, WithSentinel("none")).Resolve("abcdefghijklmnopqrstuvwxy")

			Convey("Then it is rejected", func() {
				So(m.Score, ShouldEqual, 84)
				So(m.Candidate, ShouldEqual, "abcdefghijklmnopqrstuz012")
				So(m.Accepted, ShouldBeFalse)
				So(m.Value, ShouldEqual, "none")
			})
		})

		Convey("When the threshold is lowered", func() {
			m := New(below, WithThreshold(84)).Resolve("abcdefghijklmnopqrstuvwxy")
			So(m.Accepted, ShouldBeTrue)
			So(m.Value, ShouldEqual, "below")
		})
	})

	Convey("Given a scorer that ties every candidate", t, func() {
		idx := NewIndex([]Candidate{{Name: "First", Value: "1"}, {Name: "Second", Value: "2"}})
		m := New(idx, WithScorer(constScorer(90))).Resolve("anything")

		Convey("Then the earliest candidate wins", func() {
			So(m.Candidate, ShouldEqual, "First")
			So(m.Value, ShouldEqual, "1")
		})
	})

	Convey("Given an empty pool", t, func() {
		r := New(NewIndex(nil))

		Convey("Then Resolve returns the sentinel and ResolveAll fails", func() {
			So(r.Resolve("Saka").Value, ShouldEqual, DefaultSentinel)
			_, err := r.ResolveAll(context.Background(), []string{"Saka"})
			So(errors.Is(err, ErrEmptyPool), ShouldBeTrue)
		})
	})
}

func TestResolveAll(t *testing.T) {
	Convey("Given many targets", t, func() {
		var cands []Candidate
		var targets []string
		for i := 0; i < 40; i++ {
			name := fmt.Sprintf("Player%02d Surname%02d", i, i)
			cands = append(cands, Candidate{Name: name, Value: fmt.Sprint(i)})
			targets = append(targets, name)
		}
		r := New(NewIndex(cands), WithWorkers(4))

		Convey("When resolving in parallel", func() {
			out, err := r.ResolveAll(context.Background(), targets)

			Convey("Then each result lands in its own slot", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 40)
				for i, m := range out {
					So(m.Target, ShouldEqual, targets[i])
					So(m.Value, ShouldEqual, fmt.Sprint(i))
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := r.ResolveAll(ctx, targets)

			Convey("Then the error is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When there are no targets", func() {
			out, err := r.ResolveAll(context.Background(), nil)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})
	})
}
