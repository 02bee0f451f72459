package models

// StreakData tracks consecutive active days. Best is never lower than Current.
type StreakData struct {
	Current              int    `json:"current"`
	Best                 int    `json:"best"`
	LastActiveDateString string `json:"lastActiveDateString,omitempty"`
}
