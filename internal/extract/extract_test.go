package extract_test

import (
	"testing"

	"shiori/internal/extract"
)

func TestParseCommonPatterns(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		title   string
		episode int
	}{
		{"bracketed season episode", "[DKB] Lazarus - S01E01 [1080p][HEVC x265 10bit]", "Lazarus", 1},
		{"bracketed release", "[SubsPlease] Sousou no Frieren - 12 (1080p) [F02B9CEE]", "Sousou no Frieren", 12},
		{"title dash episode", "Vinland Saga - 08", "Vinland Saga", 8},
		{"title trailing number", "Hyouka 12", "Hyouka", 12},
		{"episode suffix", "Planetes Ep 04", "Planetes", 4},
		{"season x episode", "Monster 1x33", "Monster", 33},
		{"underscores and dots", "Mushishi_Zoku_Shou_-_03_[BD.1080p]", "Mushishi Zoku Shou", 3},
		{"dual language page title", "Фрирен / Sousou no Frieren - 1 сезон, 5 серия", "Sousou no Frieren", 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extract.Parse(tc.raw)
			if !ok {
				t.Fatalf("Parse(%q) returned no result", tc.raw)
			}
			if got.Title != tc.title {
				t.Fatalf("Parse(%q) title = %q, want %q", tc.raw, got.Title, tc.title)
			}
			if got.Episode != tc.episode {
				t.Fatalf("Parse(%q) episode = %d, want %d", tc.raw, got.Episode, tc.episode)
			}
		})
	}
}

func TestParseRejectsUnparseable(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"just a movie title",
		"S01E05",
	} {
		if got, ok := extract.Parse(raw); ok {
			t.Fatalf("Parse(%q) = %+v, want no result", raw, got)
		}
	}
}

func TestParsePathStripsDirectoryAndExtension(t *testing.T) {
	got, ok := extract.ParsePath("/media/anime/Frieren/[SubsPlease] Sousou no Frieren - 12 (1080p).mkv")
	if !ok {
		t.Fatal("ParsePath returned no result")
	}
	if got.Title != "Sousou no Frieren" || got.Episode != 12 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestCleanTitleStripsNoise(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"[DKB] Lazarus", "Lazarus"},
		{"Odd Taxi (2021)", "Odd Taxi"},
		{"Heavenly.Delusion", "Heavenly Delusion"},
		{"Dandadan (Dub)", "Dandadan"},
		{"  Spice and Wolf -  ", "Spice and Wolf"},
	}
	for _, tc := range cases {
		if got := extract.CleanTitle(tc.in); got != tc.want {
			t.Fatalf("CleanTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
