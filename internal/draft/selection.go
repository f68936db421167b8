package draft

import "sort"

// Selection is the set of card numbers marked for deletion in view mode
type Selection struct {
	numbers map[int]struct{}
}

// NewSelection creates a selection holding the given numbers
func NewSelection(numbers ...int) *Selection {
	s := &Selection{numbers: make(map[int]struct{})}
	for _, n := range numbers {
		s.Add(n)
	}
	return s
}

func (s *Selection) Add(number int) {
	if s.numbers == nil {
		s.numbers = make(map[int]struct{})
	}
	s.numbers[number] = struct{}{}
}

func (s *Selection) Remove(number int) {
	delete(s.numbers, number)
}

// Toggle flips membership and reports whether the number is now selected
func (s *Selection) Toggle(number int) bool {
	if s.Has(number) {
		s.Remove(number)
		return false
	}
	s.Add(number)
	return true
}

func (s *Selection) Has(number int) bool {
	_, ok := s.numbers[number]
	return ok
}

func (s *Selection) Len() int {
	return len(s.numbers)
}

func (s *Selection) Clear() {
	s.numbers = make(map[int]struct{})
}

// Numbers returns the selected numbers in ascending order
func (s *Selection) Numbers() []int {
	result := make([]int, 0, len(s.numbers))
	for n := range s.numbers {
		result = append(result, n)
	}
	sort.Ints(result)
	return result
}
