package scoring_test

import (
	"testing"

	scoring "github.com/okian/squadlink/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTokenSortScorer(t *testing.T) {
	Convey("Given the default token-sort scorer", t, func() {
		s := scoring.NewTokenSortScorer()

		Convey("When word order differs", func() {
			Convey("Then the score is maximal", func() {
				So(s.Score("Caicedo Moises", "Moises Caicedo"), ShouldEqual, 100)
			})
		})

		Convey("When names differ only by diacritics and case", func() {
			Convey("Then they are identical after folding", func() {
				So(s.Score("Moises Caicedo", "Moisés Caicedo"), ShouldEqual, 100)
				So(s.Score("martin ODEGAARD", "Martin Ødegaard"), ShouldBeLessThan, 100)
			})
		})

		Convey("When punctuation separates tokens", func() {
			Convey("Then it is treated as whitespace", func() {
				So(s.Score("Alexander-Arnold Trent", "Trent Alexander Arnold"), ShouldEqual, 100)
			})
		})

		Convey("When one side is empty", func() {
			Convey("Then the score is zero", func() {
				So(s.Score("", "Saka"), ShouldEqual, 0)
				So(s.Score("...", "Saka"), ShouldEqual, 0)
			})
		})

		Convey("When scores fall on the acceptance boundary", func() {
			Convey("Then the exact Indel ratio is returned", func() {
				So(s.Score("abcdefghijklmnopqrst", "abcdefghijklmnopqxyz"), ShouldEqual, 85)
				So(s.Score("abcdefghijklmnopqrstuvwxy", "abcdefghijklmnopqrstuz012"), ShouldEqual, 84)
			})
		})
	})

	Convey("Given a scorer without preprocessing", t, func() {
		s := scoring.NewTokenSortScorer(scoring.WithProcessor(scoring.Identity))

		Convey("When names differ by one accented letter", func() {
			Convey("Then the accent costs one rune on each side", func() {
				So(s.Score("Moises Caicedo", "Moisés Caicedo"), ShouldAlmostEqual, 2600.0/28.0, 1e-9)
			})
		})

		Convey("When case differs", func() {
			So(s.Score("saka", "SAKA"), ShouldEqual, 0)
		})
	})
}

func TestRatio(t *testing.T) {
	Convey("Given raw strings", t, func() {
		So(scoring.Ratio("abc", "abc"), ShouldEqual, 100)
		So(scoring.Ratio("abc", "xyz"), ShouldEqual, 0)
		So(scoring.Ratio("ab", "abcd"), ShouldAlmostEqual, 400.0/6.0, 1e-9)
		So(scoring.Ratio("é", "é"), ShouldEqual, 100)
		So(scoring.Ratio("", "abc"), ShouldEqual, 0)
	})

	Convey("Given strings with multi-byte runes", t, func() {
		Convey("Then lengths and the common subsequence count runes", func() {
			So(scoring.Ratio("Ødegaard", "Odegaard"), ShouldEqual, 87.5)
			So(scoring.Ratio("Müller", "Muller"), ShouldAlmostEqual, 1000.0/12.0, 1e-9)
		})
	})
}

func TestFold(t *testing.T) {
	Convey("Given names with accents and punctuation", t, func() {
		So(scoring.Fold("  Moisés Caicedo "), ShouldEqual, "moises caicedo")
		So(scoring.Fold("N'Golo Kanté"), ShouldEqual, "n golo kante")
		So(scoring.Fold("Heung-min SON"), ShouldEqual, "heung min son")
	})
}
