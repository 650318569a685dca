package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/lysyi3m/spacetraveling/app/blog"
	"github.com/lysyi3m/spacetraveling/app/cfg"
	"github.com/lysyi3m/spacetraveling/app/prismic"
	"github.com/lysyi3m/spacetraveling/app/render"
	"github.com/lysyi3m/spacetraveling/app/site"
)

func runBrowse(ctx context.Context, appCfg *cfg.Cfg, client *prismic.Client, siteConfig *site.Config) error {
	loader := blog.NewLoader(client, siteConfig.BlogOptions())

	first, err := loader.LoadInitialPage(ctx, appCfg.BrowseRef)
	if err != nil {
		return err
	}

	interactive := !appCfg.BrowseAll &&
		(isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()))

	locale := render.NewLocale(siteConfig.Language, time.Local)
	return browse(ctx, os.Stdout, os.Stdin, interactive, blog.NewSession(loader, first), locale)
}

// browse prints the listing page by page. Interactive sessions ask before
// each page and report a failed page without ending; otherwise every page
// is printed and the first failure is returned.
func browse(ctx context.Context, w io.Writer, in io.Reader, interactive bool, session *blog.Session, locale *render.Locale) error {
	printed := printPosts(w, locale, session.Items(), 0)
	input := bufio.NewScanner(in)

	for session.HasMore() {
		if interactive {
			fmt.Fprintf(w, "%s? [Enter/q] ", locale.T("Load more posts"))
			if !input.Scan() || strings.EqualFold(strings.TrimSpace(input.Text()), "q") {
				break
			}
		}

		loaded, err := session.LoadMore(ctx)
		if err != nil {
			if !interactive || ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(w, "%s\n", err)
			continue
		}
		if !loaded {
			break
		}
		printed = printPosts(w, locale, session.Items(), printed)
	}

	fmt.Fprintf(w, "%d posts\n", printed)
	return nil
}

// printPosts writes the items after the first skip ones and returns the total printed.
func printPosts(w io.Writer, locale *render.Locale, items []blog.PostSummary, skip int) int {
	for _, post := range items[skip:] {
		fmt.Fprintf(w, "%s\n", post.Title)
		if post.Subtitle != "" {
			fmt.Fprintf(w, "  %s\n", post.Subtitle)
		}
		fmt.Fprintf(w, "  %s · %s · /post/%s\n\n", locale.TitleDate(post.FirstPublicationDate), post.Author, post.UID)
	}
	return len(items)
}
