package transmission

import (
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
)

// rollDice makes the next roll equal to roll.
type rollDice int

func (d rollDice) IntN(int) int { return int(d) - 1 }

// panicDice fails the test if a roll is drawn at all.
type panicDice struct{ t *testing.T }

func (d panicDice) IntN(int) int {
	d.t.Fatal("dice should not be rolled")
	return 0
}

func TestPickInterstitial(t *testing.T) {
	tests := []struct {
		name        string
		orAd        int
		jingle      int
		advert      int
		roll        int
		haveJingles bool
		haveAds     bool
		want        Kind
	}{
		{"roll below gate", 40, 20, 10, 39, true, true, KindNone},
		{"roll at gate picks jingle", 40, 20, 10, 40, true, true, KindJingle},
		{"jingle wins when both qualify", 40, 10, 20, 59, true, true, KindJingle},
		{"no jingles falls back to ad", 40, 20, 10, 50, false, true, KindAdvertisement},
		{"jingle over span falls back to ad", 40, 70, 10, 50, true, true, KindAdvertisement},
		{"both over span", 40, 70, 70, 50, true, true, KindNone},
		{"nothing loaded", 40, 20, 10, 50, false, false, KindNone},
		{"no ads and jingle over span", 40, 70, 10, 50, true, false, KindNone},
		{"zero gate always passes", 0, 20, 10, 1, true, true, KindJingle},
		{"jingle chance equal to span", 40, 60, 10, 45, true, true, KindJingle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{JingleOrAdChance: tt.orAd, JingleChance: tt.jingle, AdvertisementChance: tt.advert}
			got := PickInterstitial(cfg, rollDice(tt.roll), tt.haveJingles, tt.haveAds)
			if got != tt.want {
				t.Fatalf("PickInterstitial() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPickInterstitialNarrowSpanNeverRolls(t *testing.T) {
	for _, orAd := range []int{99, 100} {
		cfg := Config{JingleOrAdChance: orAd, JingleChance: 0, AdvertisementChance: 0}
		if got := PickInterstitial(cfg, panicDice{t}, true, true); got != KindNone {
			t.Fatalf("orAd=%d: got %q", orAd, got)
		}
	}
}

func TestPickInterstitialRollRange(t *testing.T) {
	cfg := DefaultConfig()
	var seen []int
	d := recordingDice{inner: rand.New(rand.NewPCG(1, 2)), seen: &seen}
	for i := 0; i < 1000; i++ {
		PickInterstitial(cfg, d, true, true)
	}
	span := 100 - cfg.JingleOrAdChance
	for _, n := range seen {
		if n != span-1 {
			t.Fatalf("dice asked for IntN(%d), want IntN(%d)", n, span-1)
		}
	}
}

type recordingDice struct {
	inner Dice
	seen  *[]int
}

func (d recordingDice) IntN(n int) int {
	*d.seen = append(*d.seen, n)
	return d.inner.IntN(n)
}

func TestPickInterstitialEmptySecondaries(t *testing.T) {
	cfg := DefaultConfig()
	dice := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 5000; i++ {
		if got := PickInterstitial(cfg, dice, false, true); got == KindJingle {
			t.Fatal("empty jingle sequencer was selected")
		}
		if got := PickInterstitial(cfg, dice, true, false); got == KindAdvertisement {
			t.Fatal("empty advertisement sequencer was selected")
		}
	}
}

func TestInterstitialsAreMutuallyExclusivePerCycle(t *testing.T) {
	cfg := testConfig()
	cfg.JingleOrAdChance = 40
	cfg.Open = media{size: 10}.open
	cfg.Dice = rand.New(rand.NewPCG(42, 42))

	sink := newFakeSink()
	l := New(sink, cfg, zerolog.Nop())
	names := make([]string, 200)
	for i := range names {
		names[i] = "T"
	}
	l.SetPlaylist(seqOf(false, names...))
	l.SetJingles(seqOf(true, "J"))
	l.SetAdvertisements(seqOf(true, "AD"))

	if err := runLoop(t, l); err != nil {
		t.Fatalf("Run: %v", err)
	}

	played := sink.played()
	for i := 1; i < len(played); i++ {
		if played[i-1] != "T" && played[i] != "T" {
			t.Fatalf("two interstitials in a row at %d: %v", i, played[i-1:i+1])
		}
	}
}
