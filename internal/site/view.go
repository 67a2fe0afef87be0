package site

import (
	"fmt"
	"strings"
	"time"

	"media-watcher/internal/journal"
	"media-watcher/internal/mediatypes"
)

// indexPage is the data behind index.html.
type indexPage struct {
	MaxItems     int
	ItemsPerPage int
	ArchiveFile  string
	Generated    string
	Tabs         []tab
	Panes        []pane
}

type tab struct {
	Category string
	Label    string
	// Latest is the MM/DD of the newest record in the tab.
	Latest string
	Active bool
}

type pane struct {
	Category string
	Active   bool
	Months   []month
}

type month struct {
	Label string
	Days  []day
}

type day struct {
	Label    string
	ListID   string
	Expanded bool
	Items    []item
	// HasMore is set when some items start hidden behind the load-more
	// button.
	HasMore bool
}

type item struct {
	Filename   string
	Path       string
	SearchName string
	Time       string
	URL        string
	Synopsis   string
	Hidden     bool
}

// archivePage is the data behind archive.html.
type archivePage struct {
	DefaultCategory string
	IndexFile       string
	ScriptFile      string
	DataFile        string
	Generated       string
}

// buildIndex groups records (newest first) into tabs, panes, months and
// days. Only the first maxItems records are shown.
func buildIndex(records []journal.Record, maxItems, perPage int, defaultCategory mediatypes.Category, now time.Time) indexPage {
	if maxItems > 0 && len(records) > maxItems {
		records = records[:maxItems]
	}

	byCategory := make(map[mediatypes.Category][]journal.Record)
	for _, r := range records {
		c := r.Category
		if !c.Valid() {
			c = mediatypes.CategoryUnknown
		}
		byCategory[c] = append(byCategory[c], r)
	}

	active := mediatypes.CategoryIgnore
	if len(byCategory[defaultCategory]) > 0 {
		active = defaultCategory
	} else {
		for _, c := range mediatypes.DisplayOrder {
			if len(byCategory[c]) > 0 {
				active = c
				break
			}
		}
	}

	page := indexPage{
		MaxItems:     maxItems,
		ItemsPerPage: perPage,
		ArchiveFile:  ArchiveFile,
		Generated:    now.Format("2006-01-02 15:04:05"),
	}
	for _, c := range mediatypes.DisplayOrder {
		rs := byCategory[c]
		if len(rs) == 0 {
			continue
		}
		page.Tabs = append(page.Tabs, tab{
			Category: string(c),
			Label:    c.Label(),
			Latest:   rs[0].Timestamp.Format("01/02"),
			Active:   c == active,
		})
		page.Panes = append(page.Panes, buildPane(c, rs, perPage, c == active))
	}
	return page
}

func buildPane(c mediatypes.Category, records []journal.Record, perPage int, active bool) pane {
	p := pane{Category: string(c), Active: active}

	var curMonth *month
	var curDay *day
	for _, r := range records {
		ts := r.Timestamp
		monthKey := ts.Format("2006 年 01 月")
		if curMonth == nil || curMonth.Label != monthKey {
			p.Months = append(p.Months, month{Label: monthKey})
			curMonth = &p.Months[len(p.Months)-1]
			curDay = nil
		}

		listID := fmt.Sprintf("list-%s-%s", c, ts.Format("20060102"))
		if curDay == nil || curDay.ListID != listID {
			curMonth.Days = append(curMonth.Days, day{
				Label:  fmt.Sprintf("%s (%s)", ts.Format("01 月 02 日"), ts.Weekday()),
				ListID: listID,
			})
			curDay = &curMonth.Days[len(curMonth.Days)-1]
		}

		it := item{
			Filename: r.Filename,
			Path:     r.RelativePath,
			Time:     ts.Format("15:04:05"),
			URL:      r.ExternalURL,
			Synopsis: strings.TrimSpace(r.Synopsis),
			Hidden:   perPage > 0 && len(curDay.Items) >= perPage,
		}
		if c == mediatypes.CategoryMagazine {
			it.SearchName = r.Filename
		}
		if it.Hidden {
			curDay.HasMore = true
		}
		curDay.Items = append(curDay.Items, it)
	}

	if active && len(p.Months) > 0 && len(p.Months[0].Days) > 0 {
		p.Months[0].Days[0].Expanded = true
	}
	return p
}
