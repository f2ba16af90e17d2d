package fitshdr

import "github.jpl.nasa.gov/bdube/ccdcap/site"

// SiteCards appends the telescope block of s to h
func SiteCards(h *Header, s site.Snapshot) {
	ts, as := site.TimeString, site.AngleString
	h.SetString("TELESCOP", s.Telescope, "Telescope name")
	h.Set("ALT_OBS", s.Altitude, "Observatory altitude, m")
	h.Set("LONG_OBS", s.Longitude, "Observatory longitude, degr")
	h.Set("LAT_OBS", s.Latitude, "Observatory latitude, degr")

	h.Set("ST", s.SiderealTime, "Sidereal time: "+ts(s.SiderealTime))
	h.Set("UT", s.UniversalTime, "Universal time: "+ts(s.UniversalTime))
	h.Set("JD", s.JulianDate, "Julian date")

	h.Set("FOCUS", s.Focus.String(), "Observation focus")
	h.Set("VAL_F", s.FocusValue, "Focus value (mm)")

	h.Set("EQUINOX", s.Equinox(), "Epoch of RA & DEC")
	h.Set("RA", s.CurAlpha/3600, "Current object R.A.: "+ts(s.CurAlpha))
	h.Set("DEC", s.CurDelta/3600, "Current object Decl.: "+as(s.CurDelta))
	h.Set("S_RA", s.SrcAlpha/3600, "Source R.A.: "+ts(s.SrcAlpha))
	h.Set("S_DEC", s.SrcDelta/3600, "Source Decl.: "+as(s.SrcDelta))
	h.Set("T_RA", s.TelAlpha/3600, "Telescope R.A: "+ts(s.TelAlpha))
	h.Set("T_DEC", s.TelDelta/3600, "Telescope Decl.: "+as(s.TelDelta))

	h.Set("A", s.Azimuth/3600, "Current object Azimuth: "+as(s.Azimuth))
	h.Set("Z", s.Zenith/3600, "Current object Zenith: "+as(s.Zenith))
	h.Set("PARANGLE", s.ParAngle/3600, "Parallactic angle: "+as(s.ParAngle))
	h.Set("VAL_A", s.ValA/3600, "Telescope A: "+as(s.ValA))
	h.Set("VAL_Z", s.ValZ/3600, "Telescope Z: "+as(s.ValZ))
	h.Set("VAL_P", s.ValP/3600, "Current P2 value: "+as(s.ValP))
	h.Set("DIFF_A", s.DiffA, "Difference A: "+as(s.DiffA))
	h.Set("DIFF_Z", s.DiffZ, "Difference Z: "+as(s.DiffZ))
	h.Set("DIFF_P", s.DiffP, "Difference P2: "+as(s.DiffP))
	h.Set("VAL_D", s.DomeA/3600, "Dome A: "+as(s.DomeA))

	h.Set("OUTTEMP", s.OutTemp, "Outside temperature, degC")
	h.Set("DOMETEMP", s.DomeTemp, "In-dome temperature, degC")
	h.Set("MIRRTEMP", s.MirrorTemp, "Mirror temperature, degC")
	h.Set("PRESSURE", s.Pressure, "Pressure, mmHg")
	h.Set("WIND", s.Wind, "Wind speed, m/s")
	h.Set("HUM", s.Humidity, "Humidity, %")
}
