package settler

import (
	"strings"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/models"
)

// roster indexes one box score's players by normalized name
type roster struct {
	byName map[string]*models.PlayerLine
	names  []string
}

func newRoster(players []models.PlayerLine) *roster {
	r := &roster{byName: make(map[string]*models.PlayerLine, len(players))}
	for i := range players {
		key := models.NormalizeName(players[i].PlayerName)
		if key == "" {
			continue
		}
		if _, dup := r.byName[key]; dup {
			continue
		}
		r.byName[key] = &players[i]
		r.names = append(r.names, key)
	}
	return r
}

// find resolves a leg's player: exact normalized name first, then a unique
// last-name match, then first initial plus last name. team narrows the
// fuzzy candidates when known.
func (r *roster) find(name, team string) *models.PlayerLine {
	key := models.NormalizeName(name)
	if p, ok := r.byName[key]; ok {
		return p
	}

	parts := strings.Fields(key)
	if len(parts) < 2 {
		return nil
	}
	last := parts[len(parts)-1]
	initial := parts[0][:1]

	var byLast []*models.PlayerLine
	var byInitial []*models.PlayerLine
	for _, candidate := range r.names {
		cparts := strings.Fields(candidate)
		if len(cparts) < 2 || cparts[len(cparts)-1] != last {
			continue
		}
		p := r.byName[candidate]
		if team != "" && p.Team != "" && !strings.EqualFold(p.Team, team) {
			continue
		}
		byLast = append(byLast, p)
		if strings.HasPrefix(cparts[0], initial) {
			byInitial = append(byInitial, p)
		}
	}

	if len(byLast) == 1 {
		return byLast[0]
	}
	if len(byInitial) == 1 {
		return byInitial[0]
	}
	return nil
}
