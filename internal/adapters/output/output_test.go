package output_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/squadlink/internal/adapters/output"
	"github.com/okian/squadlink/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

func sample() table.Table {
	return table.Table{
		Columns: []string{"Player", "Nation", "Min", "MarketValue"},
		Rows: [][]string{
			{"Bukayo Saka", "ENG", "2500", "€140m"},
			{"Martin Ødegaard", "NOR", "2100", "N/A"},
		},
	}
}

func TestWriter(t *testing.T) {
	Convey("Given a table", t, func() {
		tbl := sample()

		Convey("When written without options", func() {
			var buf bytes.Buffer
			So(output.New().Write(&buf, tbl), ShouldBeNil)

			Convey("Then the header and rows are written in column order", func() {
				So(buf.String(), ShouldEqual,
					"Player,Nation,Min,MarketValue\nBukayo Saka,ENG,2500,€140m\nMartin Ødegaard,NOR,2100,N/A\n")
			})
		})

		Convey("When written with a row number and byte order mark", func() {
			var buf bytes.Buffer
			So(output.New(output.WithRowNumber("stt"), output.WithBOM()).Write(&buf, tbl), ShouldBeNil)

			Convey("Then numbering starts at 1 after the mark", func() {
				So(buf.String(), ShouldEqual,
					"\ufeffstt,Player,Nation,Min,MarketValue\n1,Bukayo Saka,ENG,2500,€140m\n2,Martin Ødegaard,NOR,2100,N/A\n")
			})

			Convey("Then the input table is not modified", func() {
				So(tbl.Columns, ShouldResemble, sample().Columns)
				So(tbl.Rows, ShouldResemble, sample().Rows)
			})
		})

		Convey("When a cell holds a comma", func() {
			var buf bytes.Buffer
			tbl.Rows[0][0] = "Saka, Bukayo"
			So(output.New().Write(&buf, tbl), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, `"Saka, Bukayo"`)
		})
	})
}

func TestWriteFile(t *testing.T) {
	Convey("Given a nested output path", t, func() {
		path := filepath.Join(t.TempDir(), "out", "results.csv")

		Convey("When a table is written twice", func() {
			w := output.New()
			So(w.WriteFile(path, sample()), ShouldBeNil)
			small := table.Table{Columns: []string{"Player"}, Rows: [][]string{{"Rice"}}}
			So(w.WriteFile(path, small), ShouldBeNil)

			Convey("Then the file holds only the last table and no temp files remain", func() {
				b, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, "Player\nRice\n")
				entries, err := os.ReadDir(filepath.Dir(path))
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})
	})
}
