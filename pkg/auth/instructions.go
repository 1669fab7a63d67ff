package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide writes step-by-step instructions for copying a
// logged-in session out of a desktop browser
func ShowCookieExtractionGuide(w io.Writer) {
	rule := strings.Repeat("=", 80)
	lines := []string{
		rule,
		"📚 SESSION COOKIE EXTRACTION GUIDE",
		rule,
		"",
		"A scrape normally starts with a manual login in the launched browser.",
		"To skip that step, import the cookies of a browser that is already logged in.",
		"",
		"🌐 STEP 1: Open https://truthsocial.com and log in",
		"   - Complete any \"Just a moment...\" check until the feed loads",
		"",
		"🔧 STEP 2: Open Developer Tools",
		"   • Chrome/Edge/Brave: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)",
		"   • Firefox: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)",
		"",
		"📡 STEP 3: Network tab",
		"   1. Refresh the page (F5)",
		"   2. Click any request to truthsocial.com/api/v1/...",
		"   3. Under 'Request Headers' find the 'Cookie:' line",
		"   4. Copy the whole value",
		"",
		"🔑 STEP 4: Import it",
		"   postharvest auth import --name main",
		"   Paste the Cookie value when prompted (input is hidden).",
		"   Copy 'User-Agent' from the same request and pass it with --user-agent",
		"   so the session keeps the fingerprint it was issued for.",
		"",
		"💡 TIPS:",
		"   • Cookies carrying the challenge clearance (cf_clearance, __cf_bm) expire quickly",
		"   • Re-import when scrape keeps stopping at the checkpoint page",
		"",
		"⚠️  SECURITY WARNING:",
		"   • These cookies give full access to the logged-in account",
		"   • They are stored encrypted or in the system keychain, never in plain text",
		rule,
		"",
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// ShowQuickExtractGuide writes a one-line reminder for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "\n🍪 Quick Guide: F12 → Network → Refresh → any truthsocial.com/api request → Headers → Cookie")
	fmt.Fprintln(w, "   Run 'postharvest auth guide' for detailed instructions")
}
