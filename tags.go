package loopaudio

import (
	"fmt"
	"strings"
)

// SongTags is advisory metadata identifying a song and its source. None
// of it is needed for playback; the title is the field most likely to
// be filled, and even that is optional.
type SongTags struct {
	Title  string
	Artist string
	Album  string
	Number string
	Year   string
	Game   string
}

// Empty reports whether no tag is set.
func (t SongTags) Empty() bool {
	return t == SongTags{}
}

// StringList returns a list of display strings for the tags that are
// set, in the order the original GUI showed them.
func (t SongTags) StringList() []string {
	var list []string
	if t.Title != "" {
		list = append(list, t.Title)
	}
	if t.Artist != "" {
		list = append(list, t.Artist)
	}
	switch {
	case t.Album != "" && t.Game != "":
		list = append(list, "Album: "+t.Album, "Game: "+t.Game)
	case t.Album != "":
		list = append(list, t.Album)
	case t.Game != "":
		list = append(list, t.Game)
	}
	if t.Number != "" {
		list = append(list, "#"+t.Number)
	}
	if t.Year != "" {
		list = append(list, t.Year)
	}
	return list
}

func (t SongTags) String() string {
	return strings.Join(t.StringList(), "; ")
}

// tagsFromComments builds SongTags from lowercased vorbis-comment style
// key/value pairs, as read by the sndfile package.
func tagsFromComments(comments map[string]string) SongTags {
	number := comments["tracknumber"]
	if number == "" {
		number = comments["track"]
	}
	return SongTags{
		Title:  comments["title"],
		Artist: comments["artist"],
		Album:  comments["album"],
		Number: number,
		Year:   comments["date"],
		Game:   comments["game"],
	}
}

var _ fmt.Stringer = SongTags{}
