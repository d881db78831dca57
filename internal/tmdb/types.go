package tmdb

import (
	"sort"
	"strconv"
)

// Movie is a catalog entry as returned by list, search and detail endpoints.
type Movie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	PosterPath    string  `json:"poster_path"`
	BackdropPath  string  `json:"backdrop_path"`
	ReleaseDate   string  `json:"release_date"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Popularity    float64 `json:"popularity"`
	GenreIDs      []int   `json:"genre_ids"`
}

// Year returns the release year, or 0 when the release date is absent or unparseable.
func (m Movie) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	y, err := strconv.Atoi(m.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return y
}

// Image is a single artwork reference attached to a movie.
type Image struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
}

type Images struct {
	ID        int     `json:"id"`
	Backdrops []Image `json:"backdrops"`
	Posters   []Image `json:"posters"`
	Stills    []Image `json:"stills"`
}

// Page is one page of a paginated movie listing. Page numbers are 1-based.
type Page struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Genres maps genre id to display name.
type Genres map[int]string

// Sorted returns the genres ordered by name.
func (g Genres) Sorted() []Genre {
	out := make([]Genre, 0, len(g))
	for id, name := range g {
		out = append(out, Genre{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Image sizes understood by the image CDN.
const (
	SizeOriginal = "original"
	SizeThumb    = "w500"
)

// ImageURL composes a display URL from the CDN base, a size token and a relative path.
func ImageURL(base, size, path string) string {
	if path == "" {
		return ""
	}
	return base + size + path
}

// ExploreURL links to the public catalog page of a movie.
func ExploreURL(id int) string {
	return "https://www.themoviedb.org/movie/" + strconv.Itoa(id)
}
