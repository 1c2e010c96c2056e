package cache_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/gqlcache/cache"
)

func ExampleNew() {
	c, err := cache.New[string](cache.MustParsePolicy("maximumSize=1000"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	normalize := func(_ context.Context, q string) (string, error) {
		return strings.Join(strings.Fields(q), " "), nil
	}

	ctx := context.Background()
	doc, _ := c.Get(ctx, "{  hello  }", normalize)
	fmt.Println(doc)

	_, _ = c.Get(ctx, "{  hello  }", normalize)
	fmt.Println("misses:", c.Misses())
	// Output:
	// { hello }
	// misses: 1
}

func ExampleParsePolicy() {
	p, err := cache.ParsePolicy("maximumWeight=64MiB, expireAfterAccess=1h")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(p)
	fmt.Println(p.Describe())
	// Output:
	// maximumWeight=67108864,expireAfterAccess=1h0m0s
	// up to 64 MiB of query text
}

func ExampleParsePolicy_disabled() {
	for _, spec := range []string{"", "maximumSize=0", "unbounded"} {
		p := cache.MustParsePolicy(spec)
		fmt.Printf("%q caches: %v\n", spec, p.ShouldCache())
	}
	// Output:
	// "" caches: false
	// "maximumSize=0" caches: false
	// "unbounded" caches: true
}

func ExampleCache_Lookup() {
	c, _ := cache.New[int](cache.DefaultPolicy())
	defer c.Close()

	length := func(_ context.Context, q string) (int, error) { return len(q), nil }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		r := c.Lookup(ctx, "{ hello }", length)
		fmt.Println(r.Value, r.Source)
	}
	// Output:
	// 9 computed
	// 9 hit
}
