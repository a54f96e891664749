// Package instagram holds the site-specific knowledge the capture run relies on:
// page routes, the selectors that reveal a logged-in session, and the controls
// used to move through a story.
package instagram
