package derive

import (
	"sort"
	"strings"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
)

type bonusKey struct {
	group  string
	target string
}

// FacilityGroup strips the level suffix so that competing levels of one
// standard (kansen1, kansen2) share a group.
func FacilityGroup(code string) string {
	return strings.TrimRight(code, "0123456789")
}

// applyBonuses adds the best registered bonus of each (facility group,
// target) whose target has been billed.
func (b *builder) applyBonuses(bonuses []reference.FacilityBonus, registered map[string]bool) {
	best := make(map[bonusKey]reference.FacilityBonus)
	for _, fb := range bonuses {
		if !fb.IsActive || fb.BonusType != reference.BonusAdd || !registered[fb.FacilityCode] {
			continue
		}
		k := bonusKey{group: FacilityGroup(fb.FacilityCode), target: fb.TargetKubun}
		if cur, ok := best[k]; !ok || fb.BonusPoints > cur.BonusPoints {
			best[k] = fb
		}
	}

	keys := make([]bonusKey, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].target != keys[j].target {
			return keys[i].target < keys[j].target
		}
		return keys[i].group < keys[j].group
	})

	for _, k := range keys {
		fb := best[k]
		if fb.TargetKubun == "" || !b.targetBilled(fb.TargetKubun) {
			continue
		}
		b.addLine(SelectedItem{
			Code:     BonusPrefix + fb.FacilityCode + "-" + fb.TargetKubun,
			Name:     fb.Name,
			Points:   fb.BonusPoints,
			Category: "bonus",
			Count:    1,
		})
	}
}

func (b *builder) targetBilled(target string) bool {
	if b.has(target) {
		return true
	}
	for _, it := range b.items {
		if strings.HasPrefix(it.Code, BonusPrefix) {
			continue
		}
		if strings.HasPrefix(it.Code, target) {
			return true
		}
	}
	return false
}
