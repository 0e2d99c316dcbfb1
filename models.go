package main

import (
	"fmt"
	"time"
)

// Profile is a committed user record used for discovery. A profile exists in
// the store only with a non-empty name and institute; resubmitting the form
// replaces the previous row for the same user.
type Profile struct {
	UserID      int64
	Name        string
	Institute   string
	Description string
	PhotoFileID string
	Username    string
}

// Like is a directed, timestamped expression of interest. Repeated likes for
// the same pair may coexist; the daily limit is a query-time policy.
type Like struct {
	LikerID int64
	LikedID int64
	LikedAt time.Time
}

// Report is a directed complaint. The discovery exclusion derived from it is
// applied in both directions.
type Report struct {
	ReporterID int64
	ReportedID int64
	ReportedAt time.Time
}

// institutes is the fixed set offered on the institute keyboard.
var institutes = []string{
	"ИГЗ", "ИЕН", "ИИиД", "ИИиС",
	"ИМИТиФ", "ИНиГ", "ИППСТ", "ИПСУБ",
	"ИСК", "ИУФФиЖ", "ИФКиС", "ИЭиУ",
	"ИЯЛ", "МКПО",
}

func validInstitute(code string) bool {
	for _, inst := range institutes {
		if inst == code {
			return true
		}
	}
	return false
}

// instituteKeyboard lays the fixed set out four buttons per row.
func instituteKeyboard() [][]Button {
	var rows [][]Button
	for i := 0; i < len(institutes); i += 4 {
		end := i + 4
		if end > len(institutes) {
			end = len(institutes)
		}
		var row []Button
		for _, inst := range institutes[i:end] {
			row = append(row, Button{Label: inst, Data: cbInstitutePrefix + inst})
		}
		rows = append(rows, row)
	}
	return rows
}

// profileCaption renders the profile card text: name, institute, description,
// optionally prefixed with a header line.
func profileCaption(p *Profile, header string) string {
	desc := p.Description
	if desc == "" {
		desc = " "
	}
	text := fmt.Sprintf("%s\n%s\n%s", p.Name, p.Institute, desc)
	if header != "" {
		text = header + "\n" + text
	}
	return text
}

// contactLine is how one side of a fresh match is presented to the other.
func contactLine(p *Profile) string {
	if p == nil {
		return "анкета больше недоступна"
	}
	handle := "ник не указан"
	if p.Username != "" {
		handle = "@" + p.Username
	}
	return fmt.Sprintf("%s (%s)", p.Name, handle)
}
