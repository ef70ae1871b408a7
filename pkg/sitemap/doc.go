/*
Package sitemap renders the site's sitemap.xml from the list of routes that were
prerendered at build time, and serves it through a small HTTP middleware.

The route list comes from a JSON build manifest. Data routes (anything ending in
".json") are never listed. The rendered document is kept in memory and swapped
atomically when the manifest is reloaded, so requests always see a complete body.
*/
package sitemap
