package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownHouse = errors.New("unknown house")
	ErrUnknownFloor = errors.New("unknown floor")
	ErrUnknownTask  = errors.New("unknown task")
)

type House struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Theme         string `json:"theme"`
	Floors        int    `json:"floors"`
	HorrorType    string `json:"horror_type"`
	Description   string `json:"description"`
	TasksPerFloor int    `json:"tasks_per_floor"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Task struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	HouseID            int      `json:"house_id"`
	Floor              int      `json:"floor"`
	Room               string   `json:"room"`
	Steps              int      `json:"steps"`
	Position           Position `json:"position"`
	InteractTime       float64  `json:"interact_time"`
	RequiresAllPlayers bool     `json:"requires_all_players"`
	TaskType           string   `json:"task_type"`
}

type floorKey struct {
	house int
	floor int
}

var (
	housesByID   map[int]House
	tasksByFloor map[floorKey][]Task
	tasksByID    map[string]Task
)

func init() {
	housesByID = make(map[int]House, len(houses))
	tasksByFloor = make(map[floorKey][]Task)
	tasksByID = make(map[string]Task)

	for _, h := range houses {
		housesByID[h.ID] = h
		for floor := 1; floor <= h.Floors; floor++ {
			key := floorKey{house: h.ID, floor: floor}
			for i := 0; i < h.TasksPerFloor; i++ {
				tpl := taskTemplates[i%len(taskTemplates)]
				task := Task{
					ID:           fmt.Sprintf("%s_%d_%d_%d", tpl.id, h.ID, floor, i),
					Name:         tpl.name,
					Description:  tpl.description,
					HouseID:      h.ID,
					Floor:        floor,
					Room:         fmt.Sprintf("room_%d", i+1),
					Steps:        1,
					Position:     Position{X: float64(100 + i*150), Y: 200},
					InteractTime: 3.0,
					TaskType:     tpl.taskType,
				}
				tasksByFloor[key] = append(tasksByFloor[key], task)
				tasksByID[task.ID] = task
			}
		}
	}
}

func Houses() []House {
	out := make([]House, len(houses))
	copy(out, houses)
	return out
}

func HouseByID(id int) (House, error) {
	h, ok := housesByID[id]
	if !ok {
		return House{}, ErrUnknownHouse
	}
	return h, nil
}

func TasksFor(houseID, floor int) ([]Task, error) {
	h, ok := housesByID[houseID]
	if !ok {
		return nil, ErrUnknownHouse
	}
	if floor < 1 || floor > h.Floors {
		return nil, ErrUnknownFloor
	}
	arr := tasksByFloor[floorKey{house: houseID, floor: floor}]
	out := make([]Task, len(arr))
	copy(out, arr)
	return out, nil
}

func TaskIDsFor(houseID, floor int) ([]string, error) {
	arr, err := TasksFor(houseID, floor)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(arr))
	for i, t := range arr {
		ids[i] = t.ID
	}
	return ids, nil
}

func TaskByID(id string) (Task, error) {
	t, ok := tasksByID[id]
	if !ok {
		return Task{}, ErrUnknownTask
	}
	return t, nil
}
