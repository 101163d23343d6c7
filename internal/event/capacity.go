package event

import "fmt"

// almostFullThreshold は残席警告を表示する残り枠数のしきい値。
const almostFullThreshold = 20

// CapacityInfo はイベント定員の算出結果。
// 表示文言はフロントエンドのドイツ語UIに合わせる。
type CapacityInfo struct {
	MaxCapacity    *int // nilは無制限
	Registrations  int
	SpotsRemaining *int // 無制限の場合nil
	Unlimited      bool
	Full           bool
	AlmostFull     bool

	CapacityText string // 例: "42 / 100 Teilnehmer"
	SpotsText    string // 例: "Noch 58 Plätze verfügbar"
	WarningText  string // 例: "Ausgebucht"。警告不要時は空
}

// ComputeCapacity は最大定員と現在の申込数から定員情報を算出する。
// maxCapacityがnilの場合は無制限として扱う。
// 残り枠が1〜20の場合は残席警告を付与する。
func ComputeCapacity(maxCapacity *int, registrations int) CapacityInfo {
	info := CapacityInfo{
		MaxCapacity:   maxCapacity,
		Registrations: registrations,
	}

	if maxCapacity == nil {
		info.Unlimited = true
		info.CapacityText = fmt.Sprintf("%d Teilnehmer", registrations)
		info.SpotsText = "Unbegrenzte Plätze"
		return info
	}

	remaining := *maxCapacity - registrations
	info.SpotsRemaining = &remaining
	info.CapacityText = fmt.Sprintf("%d / %d Teilnehmer", registrations, *maxCapacity)

	switch {
	case remaining <= 0:
		info.Full = true
		info.WarningText = "Ausgebucht"
	case remaining <= almostFullThreshold:
		info.AlmostFull = true
		info.SpotsText = fmt.Sprintf("Noch %d Plätze verfügbar", remaining)
		info.WarningText = fmt.Sprintf("Nur noch %d Plätze!", remaining)
	default:
		info.SpotsText = fmt.Sprintf("Noch %d Plätze verfügbar", remaining)
	}

	return info
}
