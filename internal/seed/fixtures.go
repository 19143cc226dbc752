package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yml
var fixturesYAML []byte

// Fixtures is the hand-written demo data set.
type Fixtures struct {
	Password string        `yaml:"password"`
	Users    []FixtureUser `yaml:"users"`
	Posts    []FixturePost `yaml:"posts"`
}

// FixtureUser is one demo account; Key is how posts and comments refer to it.
type FixtureUser struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Avatar string `yaml:"avatar"`
}

// FixturePost is one demo post with its comments and likers.
type FixturePost struct {
	Author   string           `yaml:"author"`
	Title    string           `yaml:"title"`
	Content  string           `yaml:"content"`
	Image    string           `yaml:"image"`
	Views    int              `yaml:"views"`
	Draft    bool             `yaml:"draft"`
	LikedBy  []string         `yaml:"likedBy"`
	Comments []FixtureComment `yaml:"comments"`
}

// FixtureComment is a comment left on a FixturePost.
type FixtureComment struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

// LoadFixtures parses the embedded fixture file.
func LoadFixtures() (*Fixtures, error) {
	return ParseFixtures(fixturesYAML)
}

// ParseFixtures decodes raw YAML and checks that every user reference resolves.
func ParseFixtures(raw []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixtures) validate() error {
	if fx.Password == "" {
		return fmt.Errorf("fixtures: password is required")
	}
	keys := make(map[string]struct{}, len(fx.Users))
	for _, u := range fx.Users {
		if u.Key == "" || u.Email == "" {
			return fmt.Errorf("fixtures: user %q needs a key and an email", u.Name)
		}
		if _, dup := keys[u.Key]; dup {
			return fmt.Errorf("fixtures: duplicate user key %q", u.Key)
		}
		keys[u.Key] = struct{}{}
	}

	known := func(key string) bool {
		_, ok := keys[key]
		return ok
	}
	for _, p := range fx.Posts {
		if !known(p.Author) {
			return fmt.Errorf("fixtures: post %q has unknown author %q", p.Title, p.Author)
		}
		for _, liker := range p.LikedBy {
			if !known(liker) {
				return fmt.Errorf("fixtures: post %q liked by unknown user %q", p.Title, liker)
			}
		}
		for _, c := range p.Comments {
			if !known(c.Author) {
				return fmt.Errorf("fixtures: comment on %q has unknown author %q", p.Title, c.Author)
			}
		}
	}
	return nil
}
