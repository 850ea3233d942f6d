package timezone

import "time"

// Layout is how every timestamp in persisted collections and reports is
// rendered.
const Layout = "2006-01-02 15:04:05"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Taipei")
	if err != nil {
		panic(err)
	}
}

// force timezone to Taipei, the ticketing site publishes every schedule in
// local time and stored timestamps are compared against it by humans.
func Now() time.Time {
	return time.Now().In(Location)
}

// Format renders t in Taipei time using Layout.
func Format(t time.Time) string {
	return t.In(Location).Format(Layout)
}

// Stamp is Format(Now()).
func Stamp() string {
	return Format(Now())
}
