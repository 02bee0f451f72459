package gamification

import "github.com/aclio/aclio/models"

// Levels is ordered by MinPoints ascending; the first entry starts at zero.
var Levels = []models.Level{
	{Level: 1, Name: "Beginner", MinPoints: 0, Icon: "🌱"},
	{Level: 2, Name: "Explorer", MinPoints: 100, Icon: "🧭"},
	{Level: 3, Name: "Achiever", MinPoints: 250, Icon: "⭐"},
	{Level: 4, Name: "Go-Getter", MinPoints: 500, Icon: "🚀"},
	{Level: 5, Name: "Trailblazer", MinPoints: 1000, Icon: "🔥"},
	{Level: 6, Name: "Champion", MinPoints: 2000, Icon: "🏆"},
	{Level: 7, Name: "Master", MinPoints: 3500, Icon: "👑"},
	{Level: 8, Name: "Legend", MinPoints: 5500, Icon: "💎"},
	{Level: 9, Name: "Mythic", MinPoints: 8000, Icon: "🌟"},
	{Level: 10, Name: "Transcendent", MinPoints: 12000, Icon: "🌌"},
}

// LevelFor returns the highest level whose MinPoints is reached.
func LevelFor(points int) models.Level {
	current := Levels[0]
	for _, l := range Levels {
		if l.MinPoints <= points {
			current = l
		}
	}
	return current
}

// LevelProgress describes how far a point total is into its level.
type LevelProgress struct {
	Current         models.Level  `json:"current"`
	Next            *models.Level `json:"next,omitempty"`
	PointsIntoLevel int           `json:"pointsIntoLevel"`
	PointsForNext   int           `json:"pointsForNext"`
	Percent         int           `json:"percent"`
}

// ProgressFor computes LevelProgress. At the top level Next is nil and Percent is 100.
func ProgressFor(points int) LevelProgress {
	current := LevelFor(points)
	p := LevelProgress{Current: current, PointsIntoLevel: points - current.MinPoints, Percent: 100}
	for i, l := range Levels {
		if l.Level == current.Level && i+1 < len(Levels) {
			next := Levels[i+1]
			span := next.MinPoints - current.MinPoints
			p.Next = &next
			p.PointsForNext = next.MinPoints - points
			p.Percent = p.PointsIntoLevel * 100 / span
		}
	}
	return p
}
