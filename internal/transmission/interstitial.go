/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package transmission

import "github.com/friendsincode/stationloop/internal/sequencer"

// PickInterstitial decides what, if anything, plays between two primary
// tracks. One roll is drawn from [1, 100-JingleOrAdChance); a roll at or
// above JingleOrAdChance lets an interstitial through. The jingle is checked
// first and wins whenever it qualifies. The inner chances are compared
// against the span, not rolled again.
func PickInterstitial(c Config, dice Dice, haveJingles, haveAds bool) Kind {
	span := 100 - c.JingleOrAdChance
	if span <= 1 {
		return KindNone
	}
	roll := 1 + dice.IntN(span-1)
	if roll < c.JingleOrAdChance {
		return KindNone
	}
	if haveJingles && c.JingleChance <= span {
		return KindJingle
	}
	if haveAds && c.AdvertisementChance <= span {
		return KindAdvertisement
	}
	return KindNone
}

func nonEmpty(s *sequencer.Sequencer) bool {
	return s != nil && s.Len() > 0
}
