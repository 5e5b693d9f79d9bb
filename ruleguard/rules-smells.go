package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two consecutive guards returning the same value can be merged with ||.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// gateway keeps every remote call going through the configured, timed client.
func gateway(m dsl.Matcher) {
	m.Match(`http.DefaultClient`, `http.Get($*_)`, `http.Post($*_)`, `http.PostForm($*_)`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report(`use the injected *http.Client; the default client has no timeout`)

	m.Match(`md5.Sum($*_)`, `md5.New()`).
		Where(!m.File().PkgPath.Matches(`/pkg/sign$`)).
		Report(`request signatures are computed in pkg/sign only`)
}

// stdout is owned by the stdio transport.
func stdout(m dsl.Matcher) {
	m.Match(`fmt.Print($*_)`, `fmt.Println($*_)`, `fmt.Printf($*_)`, `log.Print($*_)`, `log.Println($*_)`, `log.Printf($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/`)).
		Report(`stdout carries the stdio transport; log through slog to stderr`)
}
